// Package metrics provides prometheus collectors for the service layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors. A nil *Metrics is safe to call, so services
// can run unmetered in tests.
type Metrics struct {
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge

	playsTotal       *prometheus.CounterVec
	resolutionsTotal *prometheus.CounterVec
	claimsTotal      prometheus.Counter
	listingsTotal    prometheus.Counter
	salesTotal       prometheus.Counter
	feeVolume        prometheus.Counter
}

// New registers collectors on the given registerer (nil uses the default).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gachapon_http_requests_total",
			Help: "Total HTTP requests by method, route and status.",
		}, []string{"service", "method", "path", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gachapon_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"service", "method", "path"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gachapon_http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		playsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gachapon_plays_total",
			Help: "Play sessions created, by game.",
		}, []string{"game_id"}),
		resolutionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gachapon_resolutions_total",
			Help: "Resolved play sessions, by outcome.",
		}, []string{"outcome"}),
		claimsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gachapon_prizes_claimed_total",
			Help: "Prizes claimed (collectibles issued).",
		}),
		listingsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gachapon_marketplace_listings_total",
			Help: "Marketplace listings created.",
		}),
		salesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gachapon_marketplace_sales_total",
			Help: "Marketplace listings sold.",
		}),
		feeVolume: factory.NewCounter(prometheus.CounterOpts{
			Name: "gachapon_marketplace_fee_units_total",
			Help: "Platform fee volume collected, in token units.",
		}),
	}
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(service, method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(service, method, path, status).Inc()
	m.httpDuration.WithLabelValues(service, method, path).Observe(duration.Seconds())
}

// IncrementInFlight increments the in-flight gauge.
func (m *Metrics) IncrementInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// DecrementInFlight decrements the in-flight gauge.
func (m *Metrics) DecrementInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// RecordPlay counts one created play session.
func (m *Metrics) RecordPlay(gameID string) {
	if m == nil {
		return
	}
	m.playsTotal.WithLabelValues(gameID).Inc()
}

// RecordResolution counts one resolved session ("won" or "lost").
func (m *Metrics) RecordResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordClaim counts one issued collectible.
func (m *Metrics) RecordClaim() {
	if m == nil {
		return
	}
	m.claimsTotal.Inc()
}

// RecordListing counts one marketplace listing.
func (m *Metrics) RecordListing() {
	if m == nil {
		return
	}
	m.listingsTotal.Inc()
}

// RecordSale counts one marketplace sale and its fee volume.
func (m *Metrics) RecordSale(fee uint64) {
	if m == nil {
		return
	}
	m.salesTotal.Inc()
	m.feeVolume.Add(float64(fee))
}
