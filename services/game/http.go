package game

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/gachapon-labs/gachapon/internal/httputil"
	"github.com/gachapon-labs/gachapon/internal/middleware"
)

// HTTPHandler handles HTTP requests for the game service.
type HTTPHandler struct {
	svc *Service
}

// NewHTTPHandler creates a new HTTP handler for the game service.
func NewHTTPHandler(svc *Service) *HTTPHandler {
	return &HTTPHandler{svc: svc}
}

// RegisterRoutes registers the game service routes on the given router.
func (h *HTTPHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/games", h.handleCreateGame).Methods(http.MethodPost)
	r.HandleFunc("/games", h.handleListGames).Methods(http.MethodGet)
	r.HandleFunc("/games/{gameID}", h.handleGetGame).Methods(http.MethodGet)
	r.HandleFunc("/games/{gameID}", h.handleCloseGame).Methods(http.MethodDelete)
	r.HandleFunc("/games/{gameID}/status", h.handleUpdateStatus).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameID}/prizes", h.handleAddPrize).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameID}/prizes", h.handleListPrizes).Methods(http.MethodGet)
	r.HandleFunc("/games/{gameID}/prizes/{index}", h.handleGetPrize).Methods(http.MethodGet)
	r.HandleFunc("/games/{gameID}/prizes/{index}", h.handleClosePrize).Methods(http.MethodDelete)
	r.HandleFunc("/games/{gameID}/prizes/{index}/replenish", h.handleReplenish).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameID}/play", h.handlePlay).Methods(http.MethodPost)
	r.HandleFunc("/games/{gameID}/treasury/withdraw", h.handleWithdrawTreasury).Methods(http.MethodPost)
	r.HandleFunc("/sessions", h.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}", h.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{sessionID}", h.handleCloseSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{sessionID}/resolve", h.handleResolve).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{sessionID}/claim", h.handleClaim).Methods(http.MethodPost)
	r.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)
}

func (h *HTTPHandler) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	var params GameParams
	if err := httputil.DecodeJSON(r.Body, &params); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.svc.InitializeGame(r.Context(), account, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) handleListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.ListGames(r.Context(), queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, games)
}

func (h *HTTPHandler) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathGameID(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	g, err := h.svc.GetGame(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, g)
}

func (h *HTTPHandler) handleCloseGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathGameID(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.CloseGame(r.Context(), middleware.GetAccount(r.Context()), gameID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathGameID(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		IsActive bool `json:"is_active"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	g, err := h.svc.UpdateGameStatus(r.Context(), middleware.GetAccount(r.Context()), gameID, payload.IsActive)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, g)
}

func (h *HTTPHandler) handleAddPrize(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathGameID(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var params PrizeParams
	if err := httputil.DecodeJSON(r.Body, &params); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.svc.AddPrize(r.Context(), middleware.GetAccount(r.Context()), gameID, params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *HTTPHandler) handleListPrizes(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathGameID(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	prizes, err := h.svc.ListPrizes(r.Context(), gameID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, prizes)
}

func (h *HTTPHandler) handleGetPrize(w http.ResponseWriter, r *http.Request) {
	gameID, index, err := pathPrizeKey(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.svc.GetPrize(r.Context(), gameID, index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) handleClosePrize(w http.ResponseWriter, r *http.Request) {
	gameID, index, err := pathPrizeKey(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.svc.ClosePrize(r.Context(), middleware.GetAccount(r.Context()), gameID, index); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleReplenish(w http.ResponseWriter, r *http.Request) {
	gameID, index, err := pathPrizeKey(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Additional uint32 `json:"additional"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	p, err := h.svc.ReplenishPrizeSupply(r.Context(), middleware.GetAccount(r.Context()), gameID, index, payload.Additional)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *HTTPHandler) handlePlay(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathGameID(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		Amount      uint64 `json:"amount"`
		SessionSeed string `json:"session_seed"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	session, err := h.svc.Play(r.Context(), middleware.GetAccount(r.Context()), gameID, payload.Amount, payload.SessionSeed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, session)
}

func (h *HTTPHandler) handleWithdrawTreasury(w http.ResponseWriter, r *http.Request) {
	gameID, err := pathGameID(r)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	var payload struct {
		TreasuryOwner string `json:"treasury_owner"`
		Destination   string `json:"destination"`
		Amount        uint64 `json:"amount"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	err = h.svc.WithdrawTreasury(r.Context(), middleware.GetAccount(r.Context()),
		payload.TreasuryOwner, gameID, payload.Destination, payload.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListMySessions(r.Context(), middleware.GetAccount(r.Context()), queryLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessions)
}

func (h *HTTPHandler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetSession(r.Context(), middleware.GetAccount(r.Context()), mux.Vars(r)["sessionID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *HTTPHandler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	err := h.svc.CloseSession(r.Context(), middleware.GetAccount(r.Context()), mux.Vars(r)["sessionID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		RandomValue string `json:"random_value"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err)
		return
	}
	randomValue, err := hex.DecodeString(payload.RandomValue)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, fmt.Errorf("random_value must be hex encoded"))
		return
	}

	res, err := h.svc.Resolve(r.Context(), bearerToken(r), mux.Vars(r)["sessionID"], randomValue)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *HTTPHandler) handleClaim(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.Claim(r.Context(), middleware.GetAccount(r.Context()), mux.Vars(r)["sessionID"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *HTTPHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.GetStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func pathGameID(r *http.Request) (uint64, error) {
	gameID, err := strconv.ParseUint(mux.Vars(r)["gameID"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid game ID")
	}
	return gameID, nil
}

func pathPrizeKey(r *http.Request) (uint64, uint8, error) {
	gameID, err := pathGameID(r)
	if err != nil {
		return 0, 0, err
	}
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 8)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid prize index")
	}
	return gameID, uint8(index), nil
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func writeServiceError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, statusForError(err), err)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrGameNotFound),
		errors.Is(err, ErrPrizeNotFound),
		errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGameExists),
		errors.Is(err, ErrSessionExists),
		errors.Is(err, ErrAlreadyFulfilled),
		errors.Is(err, ErrAlreadyClaimed),
		errors.Is(err, ErrGameHasSessions),
		errors.Is(err, ErrGameInactive),
		errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrNotFulfilled),
		errors.Is(err, ErrNotClaimed),
		errors.Is(err, ErrNoPrize):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidSessionSeed),
		errors.Is(err, ErrInvalidRandomValue),
		errors.Is(err, ErrInvalidTier),
		errors.Is(err, ErrInvalidPrizeIndex),
		errors.Is(err, ErrTooManyPrizes),
		errors.Is(err, ErrProbabilityOverflow),
		errors.Is(err, ErrStringTooLong),
		errors.Is(err, ErrMathOverflow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
