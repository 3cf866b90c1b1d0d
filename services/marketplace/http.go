package marketplace

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/gachapon-labs/gachapon/internal/httputil"
	"github.com/gachapon-labs/gachapon/internal/middleware"
)

// HTTPHandler handles HTTP requests for the marketplace service.
type HTTPHandler struct {
	svc *Service
}

// NewHTTPHandler creates a new HTTP handler for the marketplace service.
func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// RegisterRoutes registers the marketplace routes on the given router.
func (h *HTTPHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/listings", h.handleList).Methods(http.MethodPost)
	r.HandleFunc("/listings", h.handleListActive).Methods(http.MethodGet)
	r.HandleFunc("/listings/{listingID}", h.handleGetListing).Methods(http.MethodGet)
	r.HandleFunc("/listings/{listingID}", h.handleCancel).Methods(http.MethodDelete)
	r.HandleFunc("/listings/{listingID}/price", h.handleUpdatePrice).Methods(http.MethodPost)
	r.HandleFunc("/listings/{listingID}/buy", h.handleBuy).Methods(http.MethodPost)
	r.HandleFunc("/sellers/{seller}/listings", h.handleListBySeller).Methods(http.MethodGet)
	r.HandleFunc("/config", h.handleUpdateConfig).Methods(http.MethodPost)
	r.HandleFunc("/fees/withdraw", h.handleWithdrawFees).Methods(http.MethodPost)
}

func (h *HTTPHandler) handleList(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		CollectibleID string `json:"collectible_id"`
		Currency      string `json:"currency"`
		Price         uint64 `json:"price"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	listing, err := h.svc.List(r.Context(), middleware.GetAccount(r.Context()),
		payload.CollectibleID, payload.Currency, payload.Price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, listing)
}

func (h *HTTPHandler) handleListActive(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	listings, err := h.svc.ListActive(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listings)
}

func (h *HTTPHandler) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.GetListing(r.Context(), mux.Vars(r)["listingID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *HTTPHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.Cancel(r.Context(), middleware.GetAccount(r.Context()), mux.Vars(r)["listingID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *HTTPHandler) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Price uint64 `json:"price"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	listing, err := h.svc.UpdatePrice(r.Context(), middleware.GetAccount(r.Context()),
		mux.Vars(r)["listingID"], payload.Price)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *HTTPHandler) handleBuy(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Currency string `json:"currency"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := h.svc.Buy(r.Context(), middleware.GetAccount(r.Context()),
		mux.Vars(r)["listingID"], payload.Currency)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sale)
}

func (h *HTTPHandler) handleListBySeller(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	listings, err := h.svc.ListBySeller(r.Context(), mux.Vars(r)["seller"], limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listings)
}

func (h *HTTPHandler) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		PlatformTreasury *string `json:"platform_treasury,omitempty"`
		Authority        *string `json:"authority,omitempty"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := h.svc.UpdateConfig(r.Context(), middleware.GetAccount(r.Context()),
		payload.PlatformTreasury, payload.Authority)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

func (h *HTTPHandler) handleWithdrawFees(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		TreasuryOwner string `json:"treasury_owner"`
		Destination   string `json:"destination"`
		Denomination  string `json:"denomination"`
		Amount        uint64 `json:"amount"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	err := h.svc.WithdrawPlatformFees(r.Context(), middleware.GetAccount(r.Context()),
		payload.TreasuryOwner, payload.Destination, payload.Denomination, payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeServiceError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, statusForError(err), err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrListingExists), errors.Is(err, ErrListingInactive):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidCurrency),
		errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
