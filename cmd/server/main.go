// Command server runs the gachapon HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gachapon-labs/gachapon/internal/auth"
	"github.com/gachapon-labs/gachapon/internal/config"
	"github.com/gachapon-labs/gachapon/internal/database"
	"github.com/gachapon-labs/gachapon/internal/httputil"
	"github.com/gachapon-labs/gachapon/internal/issuer"
	"github.com/gachapon-labs/gachapon/internal/ledger"
	"github.com/gachapon-labs/gachapon/internal/metrics"
	"github.com/gachapon-labs/gachapon/internal/middleware"
	"github.com/gachapon-labs/gachapon/pkg/logger"
	"github.com/gachapon-labs/gachapon/services/game"
	gamepg "github.com/gachapon-labs/gachapon/services/game/postgres"
	"github.com/gachapon-labs/gachapon/services/marketplace"
	marketpg "github.com/gachapon-labs/gachapon/services/marketplace/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := flag.String("config", "config/server.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Service: "gachapon",
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
	})

	m := metrics.New(prometheus.DefaultRegisterer)

	var (
		gameStore   game.Store
		marketStore marketplace.Store
	)
	if cfg.Database.URL != "" {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(db); err != nil {
			return err
		}
		gameStore = gamepg.NewStore(db)
		marketStore = marketpg.NewStore(db)
		log.Info("using postgres stores")
	} else {
		gameStore = game.NewMemoryStore()
		marketStore = marketplace.NewMemoryStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	ldg := ledger.NewMemoryLedger()
	iss := issuer.NewMemoryIssuer()

	if cfg.Game.ResolverSecret == "" {
		return errors.New("resolver secret is required")
	}
	resolver := auth.NewResolverAuthority(cfg.Game.ResolverSecret, cfg.Game.ResolverIssuer)

	gameSvc := game.New(game.Config{Authority: cfg.Game.Authority}, gameStore, ldg, iss, resolver, log)
	gameSvc.WithMetrics(m)

	marketSvc := marketplace.New(marketplace.Config{
		Authority:        cfg.Marketplace.Authority,
		PlatformTreasury: cfg.Marketplace.PlatformTreasury,
	}, marketStore, ldg, log)
	marketSvc.WithMetrics(m)

	sweeper := game.NewSweeper(gameStore, log, cfg.Game.SweepSchedule, cfg.Game.SweepMaxPending)
	if err := sweeper.Start(); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sweeper.Stop()

	router := mux.NewRouter()
	router.Use(middleware.Identity)
	router.Use(middleware.Logging(log))
	router.Use(middleware.Metrics("gachapon", m))
	router.Use(middleware.NewCORS(cfg.Server.AllowedOrigins).Handler)

	limiter := middleware.NewRateLimiter(cfg.Server.RequestsPerSecond, cfg.Server.RateBurst, log)
	limiter.StartCleanup(ctx, 10*time.Minute)
	router.Use(limiter.Handler)

	router.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	v1 := router.PathPrefix("/v1").Subrouter()
	game.NewHTTPHandler(gameSvc).RegisterRoutes(v1)
	marketplace.NewHTTPHandler(marketSvc).RegisterRoutes(v1.PathPrefix("/market").Subrouter())

	admin := newAdminHandler(cfg.Game.Authority, resolver, ldg, log)
	admin.RegisterRoutes(v1.PathPrefix("/admin").Subrouter())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "gachapon",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
