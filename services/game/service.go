package game

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gachapon-labs/gachapon/internal/metrics"
	"github.com/gachapon-labs/gachapon/pkg/logger"
)

// Errors
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrGameExists          = errors.New("game already exists")
	ErrGameNotFound        = errors.New("game not found")
	ErrGameInactive        = errors.New("game is inactive")
	ErrGameHasSessions     = errors.New("game has unresolved sessions")
	ErrPrizeNotFound       = errors.New("prize not found")
	ErrTooManyPrizes       = errors.New("too many prizes")
	ErrInvalidPrizeIndex   = errors.New("invalid prize index")
	ErrProbabilityOverflow = errors.New("probabilities must sum to at most 10000")
	ErrInvalidTier         = errors.New("invalid prize tier")
	ErrStringTooLong       = errors.New("string exceeds maximum length")
	ErrOutOfStock          = errors.New("out of stock")
	ErrInvalidAmount       = errors.New("invalid token amount")
	ErrInvalidSessionSeed  = errors.New("invalid session seed")
	ErrSessionExists       = errors.New("play session already exists")
	ErrSessionNotFound     = errors.New("play session not found")
	ErrInvalidRandomValue  = errors.New("invalid random value")
	ErrAlreadyFulfilled    = errors.New("play session already fulfilled")
	ErrNotFulfilled        = errors.New("play session not fulfilled yet")
	ErrNoPrize             = errors.New("no prize won in this session")
	ErrAlreadyClaimed      = errors.New("prize already claimed")
	ErrNotClaimed          = errors.New("prize must be claimed before closing")
	ErrMathOverflow        = errors.New("math overflow")
)

// Config carries the injected admin settings. It replaces the on-chain
// config singleton: privileged operations check against this value instead
// of ambient global state.
type Config struct {
	// Authority may create games. Per-game operations check the game's own
	// recorded authority.
	Authority string
}

// Service coordinates the probability table, the supply ledger, and the play
// session state machine over a Store, settling fees through the token ledger
// and issuing collectibles on wins.
type Service struct {
	cfg      Config
	store    Store
	ledger   TokenLedger
	issuer   CollectibleIssuer
	resolver ResolverVerifier
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// New constructs a game service.
func New(cfg Config, store Store, ledger TokenLedger, issuer CollectibleIssuer, resolver ResolverVerifier, log *logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		ledger:   ledger,
		issuer:   issuer,
		resolver: resolver,
		log:      log,
	}
}

// WithMetrics attaches prometheus collectors.
func (s *Service) WithMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// InitializeGame creates a new game without prizes. The game stays inactive
// until a prize with supply is added.
func (s *Service) InitializeGame(ctx context.Context, authority string, params GameParams) (Game, error) {
	if authority == "" || authority != s.cfg.Authority {
		return Game{}, fmt.Errorf("%w: caller is not the program authority", ErrUnauthorized)
	}
	if err := checkLen(params.Name, MaxNameLen); err != nil {
		return Game{}, fmt.Errorf("name: %w", err)
	}
	if err := checkLen(params.Description, MaxGameDescriptionLen); err != nil {
		return Game{}, fmt.Errorf("description: %w", err)
	}
	if err := checkLen(params.ImageURL, MaxURLLen); err != nil {
		return Game{}, fmt.Errorf("image_url: %w", err)
	}

	now := time.Now().UTC()
	g := Game{
		GameID:            params.GameID,
		Authority:         authority,
		Name:              params.Name,
		Description:       params.Description,
		ImageURL:          params.ImageURL,
		TokenDenomination: params.TokenDenomination,
		CostUSD:           params.CostUSD,
		Treasury:          params.Treasury,
		InlineIssuance:    params.InlineIssuance,
		IsActive:          false,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	created, err := s.store.CreateGame(ctx, g)
	if err != nil {
		return Game{}, fmt.Errorf("create game: %w", err)
	}

	s.log.WithField("game_id", created.GameID).
		WithField("authority", authority).
		Info("game created")

	return created, nil
}

// AddPrize appends a prize at the next unused table slot and records its
// weight and supply on the game.
func (s *Service) AddPrize(ctx context.Context, authority string, gameID uint64, params PrizeParams) (Prize, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return Prize{}, ErrGameNotFound
	}
	if authority != g.Authority {
		return Prize{}, fmt.Errorf("%w: caller is not the game authority", ErrUnauthorized)
	}

	if err := checkLen(params.Name, MaxNameLen); err != nil {
		return Prize{}, fmt.Errorf("name: %w", err)
	}
	if err := checkLen(params.Description, MaxPrizeDescriptionLen); err != nil {
		return Prize{}, fmt.Errorf("description: %w", err)
	}
	if err := checkLen(params.ImageURL, MaxURLLen); err != nil {
		return Prize{}, fmt.Errorf("image_url: %w", err)
	}
	if err := checkLen(params.MetadataURI, MaxURLLen); err != nil {
		return Prize{}, fmt.Errorf("metadata_uri: %w", err)
	}
	if err := checkLen(params.PhysicalSKU, MaxSKULen); err != nil {
		return Prize{}, fmt.Errorf("physical_sku: %w", err)
	}
	if !params.Tier.Valid() {
		return Prize{}, ErrInvalidTier
	}

	if err := g.addPrizeEntry(params.PrizeIndex, params.ProbabilityBP, params.SupplyTotal); err != nil {
		return Prize{}, err
	}
	g.UpdatedAt = time.Now().UTC()

	p := Prize{
		GameID:           gameID,
		PrizeIndex:       params.PrizeIndex,
		PrizeID:          params.PrizeID,
		Name:             params.Name,
		Description:      params.Description,
		ImageURL:         params.ImageURL,
		MetadataURI:      params.MetadataURI,
		PhysicalSKU:      params.PhysicalSKU,
		Tier:             params.Tier,
		ProbabilityBP:    params.ProbabilityBP,
		CostUSD:          params.CostUSD,
		WeightGrams:      params.WeightGrams,
		LengthHundredths: params.LengthHundredths,
		WidthHundredths:  params.WidthHundredths,
		HeightHundredths: params.HeightHundredths,
		SupplyTotal:      params.SupplyTotal,
		SupplyRemaining:  params.SupplyTotal,
		CreatedAt:        g.UpdatedAt,
		UpdatedAt:        g.UpdatedAt,
	}

	if err := s.store.CommitPrize(ctx, p, g); err != nil {
		return Prize{}, fmt.Errorf("commit prize: %w", err)
	}

	s.log.WithField("game_id", gameID).
		WithField("prize_index", params.PrizeIndex).
		WithField("probability_bp", params.ProbabilityBP).
		WithField("supply_total", params.SupplyTotal).
		Info("prize added")

	return p, nil
}

// ReplenishPrizeSupply adds supply to an existing prize, reactivating the
// game if the added amount raised supply above zero from an inactive state.
func (s *Service) ReplenishPrizeSupply(ctx context.Context, authority string, gameID uint64, prizeIndex uint8, additional uint32) (Prize, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return Prize{}, ErrGameNotFound
	}
	if authority != g.Authority {
		return Prize{}, fmt.Errorf("%w: caller is not the game authority", ErrUnauthorized)
	}

	p, err := s.store.GetPrize(ctx, gameID, prizeIndex)
	if err != nil {
		return Prize{}, ErrPrizeNotFound
	}

	supplyTotal, ok := checkedAddU32(p.SupplyTotal, additional)
	if !ok {
		return Prize{}, ErrMathOverflow
	}
	supplyRemaining, ok := checkedAddU32(p.SupplyRemaining, additional)
	if !ok {
		return Prize{}, ErrMathOverflow
	}
	if err := g.replenishEntry(prizeIndex, additional); err != nil {
		return Prize{}, err
	}

	now := time.Now().UTC()
	p.SupplyTotal = supplyTotal
	p.SupplyRemaining = supplyRemaining
	p.UpdatedAt = now
	g.UpdatedAt = now

	if err := s.store.CommitPrize(ctx, p, g); err != nil {
		return Prize{}, fmt.Errorf("commit replenishment: %w", err)
	}

	s.log.WithField("game_id", gameID).
		WithField("prize_index", prizeIndex).
		WithField("new_supply", p.SupplyRemaining).
		Info("prize supply replenished")

	return p, nil
}

// UpdateGameStatus toggles the activity flag.
func (s *Service) UpdateGameStatus(ctx context.Context, authority string, gameID uint64, isActive bool) (Game, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return Game{}, ErrGameNotFound
	}
	if authority != g.Authority {
		return Game{}, fmt.Errorf("%w: caller is not the game authority", ErrUnauthorized)
	}

	g.IsActive = isActive
	g.UpdatedAt = time.Now().UTC()
	updated, err := s.store.UpdateGame(ctx, g)
	if err != nil {
		return Game{}, fmt.Errorf("update game: %w", err)
	}

	s.log.WithField("game_id", gameID).
		WithField("is_active", isActive).
		Info("game status updated")

	return updated, nil
}

// Play collects the fee and opens a play session in the pending state. The
// session ID is derived from (game, player, seed) so a duplicate submission
// is rejected before any funds move.
func (s *Service) Play(ctx context.Context, player string, gameID uint64, amount uint64, sessionSeed string) (PlaySession, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return PlaySession{}, ErrGameNotFound
	}
	if !g.IsActive {
		return PlaySession{}, ErrGameInactive
	}
	if g.TotalSupplyRemaining == 0 {
		return PlaySession{}, ErrOutOfStock
	}
	if amount == 0 {
		return PlaySession{}, ErrInvalidAmount
	}
	seed, err := decodeSessionSeed(sessionSeed)
	if err != nil {
		return PlaySession{}, err
	}

	sessionID := DeriveSessionID(gameID, player, seed)
	if _, err := s.store.GetSession(ctx, sessionID); err == nil {
		return PlaySession{}, ErrSessionExists
	}

	// Funds move before the session record is written: a transfer failure
	// aborts the whole play with nothing committed.
	if err := s.ledger.Transfer(ctx, player, g.Treasury, amount, g.TokenDenomination); err != nil {
		return PlaySession{}, fmt.Errorf("collect fee: %w", err)
	}

	now := time.Now().UTC()
	session := PlaySession{
		ID:          sessionID,
		GameID:      gameID,
		Player:      player,
		AmountPaid:  amount,
		SessionSeed: sessionSeed,
		Status:      SessionStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.store.CreateSession(ctx, session)
	if err != nil {
		return PlaySession{}, fmt.Errorf("create session: %w", err)
	}

	s.log.WithField("session_id", created.ID).
		WithField("game_id", gameID).
		WithField("player", player).
		WithField("amount", amount).
		Info("play session opened")
	s.metrics.RecordPlay(strconv.FormatUint(gameID, 10))

	return created, nil
}

// Resolve finalizes a pending session with an externally supplied random
// value. The credential must prove the caller is the designated resolver for
// the session's game. Resolution happens exactly once per session; a win
// re-checks live prize supply so a race with depletion is rejected rather
// than silently downgraded to a loss.
func (s *Service) Resolve(ctx context.Context, credential, sessionID string, randomValue []byte) (Resolution, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Resolution{}, ErrSessionNotFound
	}
	g, err := s.store.GetGame(ctx, session.GameID)
	if err != nil {
		return Resolution{}, ErrGameNotFound
	}
	if err := s.resolver.VerifyResolver(credential, g.GameID); err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if session.Fulfilled {
		return Resolution{}, ErrAlreadyFulfilled
	}
	if len(randomValue) != RandomValueSize {
		return Resolution{}, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidRandomValue, RandomValueSize, len(randomValue))
	}

	var rv [RandomValueSize]byte
	copy(rv[:], randomValue)
	winIndex, won := SelectPrizeIndex(g.PrizeProbabilities, g.PrizeSupplies, g.PrizeCount, rv)

	now := time.Now().UTC()
	session.Fulfilled = true
	session.RandomValue = append([]byte(nil), randomValue...)
	session.ResolvedAt = now
	session.UpdatedAt = now

	totalPlays, ok := checkedAddU64(g.TotalPlays, 1)
	if !ok {
		return Resolution{}, ErrMathOverflow
	}
	g.TotalPlays = totalPlays
	g.LastRandomValue = append([]byte(nil), randomValue...)
	g.UpdatedAt = now

	result := Resolution{
		SessionID:   session.ID,
		GameID:      g.GameID,
		Player:      session.Player,
		Won:         won,
		RandomValue: session.RandomValue,
		ResolvedAt:  now,
	}

	var prizePtr *Prize
	if won {
		p, err := s.store.GetPrize(ctx, g.GameID, winIndex)
		if err != nil {
			return Resolution{}, fmt.Errorf("%w: winning index %d", ErrPrizeNotFound, winIndex)
		}
		// Live supply re-check: a concurrent resolution may have taken the
		// last unit since this session was created.
		if p.SupplyRemaining == 0 {
			return Resolution{}, ErrOutOfStock
		}
		p.SupplyRemaining--
		p.UpdatedAt = now
		if err := g.applyWin(winIndex); err != nil {
			return Resolution{}, err
		}

		idx := winIndex
		session.PrizeIndex = &idx
		session.Status = SessionStatusWon

		result.PrizeIndex = &idx
		result.PrizeID = &p.PrizeID
		tier := p.Tier
		result.Tier = &tier

		if g.InlineIssuance {
			// External issuance runs before local commit; a mint failure
			// leaves the session pending and resolvable again.
			collectibleID, err := s.issuer.MintOne(ctx, session.Player, g.Authority, p.Name, p.MetadataURI, string(p.Tier))
			if err != nil {
				return Resolution{}, fmt.Errorf("mint collectible: %w", err)
			}
			session.Claimed = true
			session.CollectibleID = collectibleID
			session.ClaimedAt = now
			session.Status = SessionStatusClaimed
			result.CollectibleID = collectibleID
		}
		prizePtr = &p
	} else {
		session.Status = SessionStatusLost
	}

	if err := s.store.CommitResolution(ctx, session, g, prizePtr); err != nil {
		return Resolution{}, fmt.Errorf("commit resolution: %w", err)
	}

	outcome := "lost"
	if won {
		outcome = "won"
	}
	entry := s.log.WithField("session_id", session.ID).
		WithField("game_id", g.GameID).
		WithField("outcome", outcome)
	if won {
		entry = entry.WithField("prize_index", winIndex)
	}
	entry.Info("play session resolved")
	s.metrics.RecordResolution(outcome)
	if result.CollectibleID != "" {
		s.metrics.RecordClaim()
	}

	return result, nil
}

// Claim mints the collectible for a winning session, in the deferred
// issuance variant. It fails for losses and for sessions already claimed.
func (s *Service) Claim(ctx context.Context, player, sessionID string) (PlaySession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return PlaySession{}, ErrSessionNotFound
	}
	if session.Player != player {
		return PlaySession{}, fmt.Errorf("%w: session belongs to another player", ErrUnauthorized)
	}
	if !session.Fulfilled {
		return PlaySession{}, ErrNotFulfilled
	}
	if session.PrizeIndex == nil {
		return PlaySession{}, ErrNoPrize
	}
	if session.Claimed {
		return PlaySession{}, ErrAlreadyClaimed
	}

	g, err := s.store.GetGame(ctx, session.GameID)
	if err != nil {
		return PlaySession{}, ErrGameNotFound
	}
	p, err := s.store.GetPrize(ctx, session.GameID, *session.PrizeIndex)
	if err != nil {
		return PlaySession{}, ErrPrizeNotFound
	}

	collectibleID, err := s.issuer.MintOne(ctx, player, g.Authority, p.Name, p.MetadataURI, string(p.Tier))
	if err != nil {
		return PlaySession{}, fmt.Errorf("mint collectible: %w", err)
	}

	now := time.Now().UTC()
	session.Claimed = true
	session.CollectibleID = collectibleID
	session.ClaimedAt = now
	session.UpdatedAt = now
	session.Status = SessionStatusClaimed

	updated, err := s.store.UpdateSession(ctx, session)
	if err != nil {
		return PlaySession{}, fmt.Errorf("update session: %w", err)
	}

	s.log.WithField("session_id", sessionID).
		WithField("prize_index", *session.PrizeIndex).
		WithField("collectible_id", collectibleID).
		Info("prize claimed")
	s.metrics.RecordClaim()

	return updated, nil
}

// CloseSession tears down a resolved session. A won session must be claimed
// first, so an unclaimed prize is never orphaned.
func (s *Service) CloseSession(ctx context.Context, player, sessionID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return ErrSessionNotFound
	}
	if session.Player != player {
		return fmt.Errorf("%w: session belongs to another player", ErrUnauthorized)
	}
	if !session.Fulfilled {
		return ErrNotFulfilled
	}
	if session.PrizeIndex != nil && !session.Claimed {
		return ErrNotClaimed
	}

	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.log.WithField("session_id", sessionID).Info("play session closed")
	return nil
}

// WithdrawTreasury moves collected fees out of the game treasury. Both the
// game authority and the recorded treasury owner must authorize.
func (s *Service) WithdrawTreasury(ctx context.Context, authority, treasuryOwner string, gameID uint64, destination string, amount uint64) error {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return ErrGameNotFound
	}
	if authority != g.Authority {
		return fmt.Errorf("%w: caller is not the game authority", ErrUnauthorized)
	}
	if treasuryOwner != g.Treasury {
		return fmt.Errorf("%w: caller does not own the treasury", ErrUnauthorized)
	}
	if amount == 0 {
		return ErrInvalidAmount
	}

	if err := s.ledger.Transfer(ctx, g.Treasury, destination, amount, g.TokenDenomination); err != nil {
		return fmt.Errorf("withdraw treasury: %w", err)
	}

	s.log.WithField("game_id", gameID).
		WithField("amount", amount).
		WithField("destination", destination).
		Info("treasury withdrawn")

	return nil
}

// CloseGame removes a game. It refuses while any session referencing the
// game is unresolved, so pending plays cannot be stranded.
func (s *Service) CloseGame(ctx context.Context, authority string, gameID uint64) error {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return ErrGameNotFound
	}
	if authority != g.Authority {
		return fmt.Errorf("%w: caller is not the game authority", ErrUnauthorized)
	}

	pending, err := s.store.CountPendingByGame(ctx, gameID)
	if err != nil {
		return fmt.Errorf("count pending sessions: %w", err)
	}
	if pending > 0 {
		return fmt.Errorf("%w: %d pending", ErrGameHasSessions, pending)
	}

	if err := s.store.DeleteGame(ctx, gameID); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	s.log.WithField("game_id", gameID).Info("game closed")
	return nil
}

// ClosePrize removes a prize record.
func (s *Service) ClosePrize(ctx context.Context, authority string, gameID uint64, prizeIndex uint8) error {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return ErrGameNotFound
	}
	if authority != g.Authority {
		return fmt.Errorf("%w: caller is not the game authority", ErrUnauthorized)
	}
	if _, err := s.store.GetPrize(ctx, gameID, prizeIndex); err != nil {
		return ErrPrizeNotFound
	}

	if err := s.store.DeletePrize(ctx, gameID, prizeIndex); err != nil {
		return fmt.Errorf("delete prize: %w", err)
	}

	s.log.WithField("game_id", gameID).
		WithField("prize_index", prizeIndex).
		Info("prize closed")
	return nil
}

// GetGame retrieves a game by ID.
func (s *Service) GetGame(ctx context.Context, gameID uint64) (Game, error) {
	g, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		return Game{}, ErrGameNotFound
	}
	return g, nil
}

// ListGames lists games.
func (s *Service) ListGames(ctx context.Context, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListGames(ctx, limit)
}

// GetPrize retrieves one prize.
func (s *Service) GetPrize(ctx context.Context, gameID uint64, prizeIndex uint8) (Prize, error) {
	p, err := s.store.GetPrize(ctx, gameID, prizeIndex)
	if err != nil {
		return Prize{}, ErrPrizeNotFound
	}
	return p, nil
}

// ListPrizes lists a game's prizes in index order.
func (s *Service) ListPrizes(ctx context.Context, gameID uint64) ([]Prize, error) {
	return s.store.ListPrizes(ctx, gameID)
}

// GetSession retrieves a session, restricted to its player.
func (s *Service) GetSession(ctx context.Context, player, sessionID string) (PlaySession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return PlaySession{}, ErrSessionNotFound
	}
	if session.Player != player {
		return PlaySession{}, fmt.Errorf("%w: session belongs to another player", ErrUnauthorized)
	}
	return session, nil
}

// ListMySessions lists a player's sessions.
func (s *Service) ListMySessions(ctx context.Context, player string, limit int) ([]PlaySession, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.store.ListSessionsByPlayer(ctx, player, limit)
}

// GetStats retrieves service-wide statistics.
func (s *Service) GetStats(ctx context.Context) (GameStats, error) {
	return s.store.GetStats(ctx)
}

// DeriveSessionID computes the deterministic session key for
// (game, player, seed).
func DeriveSessionID(gameID uint64, player string, seed [RandomValueSize]byte) string {
	h := sha256.New()
	h.Write([]byte("session"))
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], gameID)
	h.Write(id[:])
	h.Write([]byte(player))
	h.Write(seed[:])
	return hex.EncodeToString(h.Sum(nil))
}

func decodeSessionSeed(seedHex string) ([RandomValueSize]byte, error) {
	var seed [RandomValueSize]byte
	raw, err := hex.DecodeString(seedHex)
	if err != nil || len(raw) != RandomValueSize {
		return seed, fmt.Errorf("%w: need %d hex-encoded bytes", ErrInvalidSessionSeed, RandomValueSize)
	}
	copy(seed[:], raw)
	return seed, nil
}

func checkLen(s string, max int) error {
	if len(s) > max {
		return fmt.Errorf("%w: %d > %d", ErrStringTooLong, len(s), max)
	}
	return nil
}
