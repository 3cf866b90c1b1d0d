package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/gachapon-labs/gachapon/internal/auth"
	"github.com/gachapon-labs/gachapon/internal/httputil"
	"github.com/gachapon-labs/gachapon/internal/ledger"
	"github.com/gachapon-labs/gachapon/internal/middleware"
	"github.com/gachapon-labs/gachapon/pkg/logger"
)

var errAdminOnly = errors.New("caller is not the program authority")

// adminHandler exposes operator endpoints: minting resolver credentials and
// seeding the local ledger.
type adminHandler struct {
	authority string
	resolver  *auth.ResolverAuthority
	ledger    *ledger.MemoryLedger
	log       *logger.Logger
}

func newAdminHandler(authority string, resolver *auth.ResolverAuthority, ldg *ledger.MemoryLedger, log *logger.Logger) *adminHandler {
	return &adminHandler{authority: authority, resolver: resolver, ledger: ldg, log: log}
}

func (h *adminHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/resolver-token", h.handleResolverToken).Methods(http.MethodPost)
	r.HandleFunc("/credit", h.handleCredit).Methods(http.MethodPost)
}

func (h *adminHandler) authorized(r *http.Request) bool {
	return middleware.GetAccount(r.Context()) == h.authority
}

func (h *adminHandler) handleResolverToken(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httputil.WriteError(w, http.StatusForbidden, errAdminOnly)
		return
	}
	var payload struct {
		GameID     uint64 `json:"game_id"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	ttl := time.Duration(payload.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Hour
	}

	token, err := h.resolver.IssueResolver(payload.GameID, ttl)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, err)
		return
	}

	h.log.WithField("game_id", payload.GameID).Info("resolver credential issued")
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"game_id":    payload.GameID,
		"expires_in": int64(ttl.Seconds()),
	})
}

func (h *adminHandler) handleCredit(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httputil.WriteError(w, http.StatusForbidden, errAdminOnly)
		return
	}
	var payload struct {
		Account      string `json:"account"`
		Denomination string `json:"denomination"`
		Amount       uint64 `json:"amount"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	h.ledger.Credit(payload.Account, payload.Denomination, payload.Amount)
	h.log.WithField("account", payload.Account).
		WithField("denomination", payload.Denomination).
		WithField("amount", payload.Amount).
		Info("account credited")
	w.WriteHeader(http.StatusNoContent)
}
