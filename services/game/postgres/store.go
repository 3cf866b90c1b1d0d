// Package postgres implements the game store on postgres via sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gachapon-labs/gachapon/services/game"
)

// Store is a postgres-backed game.Store.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a store over the given connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type gameRow struct {
	GameID               uint64        `db:"game_id"`
	Authority            string        `db:"authority"`
	Name                 string        `db:"name"`
	Description          string        `db:"description"`
	ImageURL             string        `db:"image_url"`
	TokenDenomination    string        `db:"token_denomination"`
	CostUSD              int64         `db:"cost_usd"`
	Treasury             string        `db:"treasury"`
	PrizeCount           int16         `db:"prize_count"`
	PrizeProbabilities   pq.Int64Array `db:"prize_probabilities"`
	PrizeSupplies        pq.Int64Array `db:"prize_supplies"`
	TotalSupplyRemaining int64         `db:"total_supply_remaining"`
	TotalPlays           int64         `db:"total_plays"`
	IsActive             bool          `db:"is_active"`
	LastRandomValue      []byte        `db:"last_random_value"`
	InlineIssuance       bool          `db:"inline_issuance"`
	CreatedAt            time.Time     `db:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at"`
}

func toGameRow(g game.Game) gameRow {
	probs := make(pq.Int64Array, g.PrizeCount)
	supplies := make(pq.Int64Array, g.PrizeCount)
	for i := 0; i < int(g.PrizeCount); i++ {
		probs[i] = int64(g.PrizeProbabilities[i])
		supplies[i] = int64(g.PrizeSupplies[i])
	}
	return gameRow{
		GameID:               g.GameID,
		Authority:            g.Authority,
		Name:                 g.Name,
		Description:          g.Description,
		ImageURL:             g.ImageURL,
		TokenDenomination:    g.TokenDenomination,
		CostUSD:              int64(g.CostUSD),
		Treasury:             g.Treasury,
		PrizeCount:           int16(g.PrizeCount),
		PrizeProbabilities:   probs,
		PrizeSupplies:        supplies,
		TotalSupplyRemaining: int64(g.TotalSupplyRemaining),
		TotalPlays:           int64(g.TotalPlays),
		IsActive:             g.IsActive,
		LastRandomValue:      g.LastRandomValue,
		InlineIssuance:       g.InlineIssuance,
		CreatedAt:            g.CreatedAt,
		UpdatedAt:            g.UpdatedAt,
	}
}

func (r gameRow) toGame() game.Game {
	g := game.Game{
		GameID:               r.GameID,
		Authority:            r.Authority,
		Name:                 r.Name,
		Description:          r.Description,
		ImageURL:             r.ImageURL,
		TokenDenomination:    r.TokenDenomination,
		CostUSD:              uint64(r.CostUSD),
		Treasury:             r.Treasury,
		PrizeCount:           uint8(r.PrizeCount),
		TotalSupplyRemaining: uint32(r.TotalSupplyRemaining),
		TotalPlays:           uint64(r.TotalPlays),
		IsActive:             r.IsActive,
		LastRandomValue:      r.LastRandomValue,
		InlineIssuance:       r.InlineIssuance,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	for i := 0; i < len(r.PrizeProbabilities) && i < game.MaxPrizes; i++ {
		g.PrizeProbabilities[i] = uint16(r.PrizeProbabilities[i])
	}
	for i := 0; i < len(r.PrizeSupplies) && i < game.MaxPrizes; i++ {
		g.PrizeSupplies[i] = uint32(r.PrizeSupplies[i])
	}
	return g
}

const gameColumns = `game_id, authority, name, description, image_url,
	token_denomination, cost_usd, treasury, prize_count, prize_probabilities,
	prize_supplies, total_supply_remaining, total_plays, is_active,
	last_random_value, inline_issuance, created_at, updated_at`

const insertGameSQL = `INSERT INTO games (` + gameColumns + `) VALUES (
	:game_id, :authority, :name, :description, :image_url,
	:token_denomination, :cost_usd, :treasury, :prize_count, :prize_probabilities,
	:prize_supplies, :total_supply_remaining, :total_plays, :is_active,
	:last_random_value, :inline_issuance, :created_at, :updated_at)`

const updateGameSQL = `UPDATE games SET
	authority = :authority, name = :name, description = :description,
	image_url = :image_url, token_denomination = :token_denomination,
	cost_usd = :cost_usd, treasury = :treasury, prize_count = :prize_count,
	prize_probabilities = :prize_probabilities, prize_supplies = :prize_supplies,
	total_supply_remaining = :total_supply_remaining, total_plays = :total_plays,
	is_active = :is_active, last_random_value = :last_random_value,
	inline_issuance = :inline_issuance, updated_at = :updated_at
	WHERE game_id = :game_id`

func (s *Store) CreateGame(ctx context.Context, g game.Game) (game.Game, error) {
	if _, err := s.db.NamedExecContext(ctx, insertGameSQL, toGameRow(g)); err != nil {
		return game.Game{}, fmt.Errorf("insert game: %w", err)
	}
	return g, nil
}

func (s *Store) GetGame(ctx context.Context, gameID uint64) (game.Game, error) {
	var r gameRow
	err := s.db.GetContext(ctx, &r, `SELECT `+gameColumns+` FROM games WHERE game_id = $1`, int64(gameID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Game{}, fmt.Errorf("game not found: %d", gameID)
		}
		return game.Game{}, fmt.Errorf("get game: %w", err)
	}
	return r.toGame(), nil
}

func (s *Store) UpdateGame(ctx context.Context, g game.Game) (game.Game, error) {
	res, err := s.db.NamedExecContext(ctx, updateGameSQL, toGameRow(g))
	if err != nil {
		return game.Game{}, fmt.Errorf("update game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.Game{}, fmt.Errorf("game not found: %d", g.GameID)
	}
	return g, nil
}

func (s *Store) DeleteGame(ctx context.Context, gameID uint64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE game_id = $1`, int64(gameID))
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("game not found: %d", gameID)
	}
	return nil
}

func (s *Store) ListGames(ctx context.Context, limit int) ([]game.Game, error) {
	var rows []gameRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+gameColumns+` FROM games ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games := make([]game.Game, 0, len(rows))
	for _, r := range rows {
		games = append(games, r.toGame())
	}
	return games, nil
}

type prizeRow struct {
	GameID           uint64    `db:"game_id"`
	PrizeIndex       int16     `db:"prize_index"`
	PrizeID          int64     `db:"prize_id"`
	Name             string    `db:"name"`
	Description      string    `db:"description"`
	ImageURL         string    `db:"image_url"`
	MetadataURI      string    `db:"metadata_uri"`
	PhysicalSKU      string    `db:"physical_sku"`
	Tier             string    `db:"tier"`
	ProbabilityBP    int16     `db:"probability_bp"`
	CostUSD          int64     `db:"cost_usd"`
	WeightGrams      int64     `db:"weight_grams"`
	LengthHundredths int32     `db:"length_hundredths"`
	WidthHundredths  int32     `db:"width_hundredths"`
	HeightHundredths int32     `db:"height_hundredths"`
	SupplyTotal      int64     `db:"supply_total"`
	SupplyRemaining  int64     `db:"supply_remaining"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func toPrizeRow(p game.Prize) prizeRow {
	return prizeRow{
		GameID:           p.GameID,
		PrizeIndex:       int16(p.PrizeIndex),
		PrizeID:          int64(p.PrizeID),
		Name:             p.Name,
		Description:      p.Description,
		ImageURL:         p.ImageURL,
		MetadataURI:      p.MetadataURI,
		PhysicalSKU:      p.PhysicalSKU,
		Tier:             string(p.Tier),
		ProbabilityBP:    int16(p.ProbabilityBP),
		CostUSD:          int64(p.CostUSD),
		WeightGrams:      int64(p.WeightGrams),
		LengthHundredths: int32(p.LengthHundredths),
		WidthHundredths:  int32(p.WidthHundredths),
		HeightHundredths: int32(p.HeightHundredths),
		SupplyTotal:      int64(p.SupplyTotal),
		SupplyRemaining:  int64(p.SupplyRemaining),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (r prizeRow) toPrize() game.Prize {
	return game.Prize{
		GameID:           r.GameID,
		PrizeIndex:       uint8(r.PrizeIndex),
		PrizeID:          uint64(r.PrizeID),
		Name:             r.Name,
		Description:      r.Description,
		ImageURL:         r.ImageURL,
		MetadataURI:      r.MetadataURI,
		PhysicalSKU:      r.PhysicalSKU,
		Tier:             game.PrizeTier(r.Tier),
		ProbabilityBP:    uint16(r.ProbabilityBP),
		CostUSD:          uint64(r.CostUSD),
		WeightGrams:      uint32(r.WeightGrams),
		LengthHundredths: uint16(r.LengthHundredths),
		WidthHundredths:  uint16(r.WidthHundredths),
		HeightHundredths: uint16(r.HeightHundredths),
		SupplyTotal:      uint32(r.SupplyTotal),
		SupplyRemaining:  uint32(r.SupplyRemaining),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

const prizeColumns = `game_id, prize_index, prize_id, name, description,
	image_url, metadata_uri, physical_sku, tier, probability_bp, cost_usd,
	weight_grams, length_hundredths, width_hundredths, height_hundredths,
	supply_total, supply_remaining, created_at, updated_at`

const upsertPrizeSQL = `INSERT INTO prizes (` + prizeColumns + `) VALUES (
	:game_id, :prize_index, :prize_id, :name, :description,
	:image_url, :metadata_uri, :physical_sku, :tier, :probability_bp, :cost_usd,
	:weight_grams, :length_hundredths, :width_hundredths, :height_hundredths,
	:supply_total, :supply_remaining, :created_at, :updated_at)
	ON CONFLICT (game_id, prize_index) DO UPDATE SET
	supply_total = EXCLUDED.supply_total,
	supply_remaining = EXCLUDED.supply_remaining,
	updated_at = EXCLUDED.updated_at`

func (s *Store) GetPrize(ctx context.Context, gameID uint64, prizeIndex uint8) (game.Prize, error) {
	var r prizeRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+prizeColumns+` FROM prizes WHERE game_id = $1 AND prize_index = $2`,
		int64(gameID), int16(prizeIndex))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Prize{}, fmt.Errorf("prize not found: game %d index %d", gameID, prizeIndex)
		}
		return game.Prize{}, fmt.Errorf("get prize: %w", err)
	}
	return r.toPrize(), nil
}

func (s *Store) UpdatePrize(ctx context.Context, p game.Prize) (game.Prize, error) {
	res, err := s.db.NamedExecContext(ctx, `UPDATE prizes SET
		supply_total = :supply_total, supply_remaining = :supply_remaining,
		updated_at = :updated_at
		WHERE game_id = :game_id AND prize_index = :prize_index`, toPrizeRow(p))
	if err != nil {
		return game.Prize{}, fmt.Errorf("update prize: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.Prize{}, fmt.Errorf("prize not found: game %d index %d", p.GameID, p.PrizeIndex)
	}
	return p, nil
}

func (s *Store) DeletePrize(ctx context.Context, gameID uint64, prizeIndex uint8) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM prizes WHERE game_id = $1 AND prize_index = $2`,
		int64(gameID), int16(prizeIndex))
	if err != nil {
		return fmt.Errorf("delete prize: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("prize not found: game %d index %d", gameID, prizeIndex)
	}
	return nil
}

func (s *Store) ListPrizes(ctx context.Context, gameID uint64) ([]game.Prize, error) {
	var rows []prizeRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+prizeColumns+` FROM prizes WHERE game_id = $1 ORDER BY prize_index`,
		int64(gameID))
	if err != nil {
		return nil, fmt.Errorf("list prizes: %w", err)
	}
	prizes := make([]game.Prize, 0, len(rows))
	for _, r := range rows {
		prizes = append(prizes, r.toPrize())
	}
	return prizes, nil
}

// CommitPrize writes the prize and its game's table in one transaction.
func (s *Store) CommitPrize(ctx context.Context, p game.Prize, g game.Game) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, upsertPrizeSQL, toPrizeRow(p)); err != nil {
			return fmt.Errorf("upsert prize: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, updateGameSQL, toGameRow(g)); err != nil {
			return fmt.Errorf("update game: %w", err)
		}
		return nil
	})
}

type sessionRow struct {
	ID            string         `db:"id"`
	GameID        uint64         `db:"game_id"`
	Player        string         `db:"player"`
	AmountPaid    int64          `db:"amount_paid"`
	SessionSeed   string         `db:"session_seed"`
	Fulfilled     bool           `db:"fulfilled"`
	RandomValue   []byte         `db:"random_value"`
	PrizeIndex    sql.NullInt16  `db:"prize_index"`
	Claimed       bool           `db:"claimed"`
	CollectibleID string         `db:"collectible_id"`
	Status        string         `db:"status"`
	CreatedAt     time.Time      `db:"created_at"`
	ResolvedAt    sql.NullTime   `db:"resolved_at"`
	ClaimedAt     sql.NullTime   `db:"claimed_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func toSessionRow(sess game.PlaySession) sessionRow {
	r := sessionRow{
		ID:            sess.ID,
		GameID:        sess.GameID,
		Player:        sess.Player,
		AmountPaid:    int64(sess.AmountPaid),
		SessionSeed:   sess.SessionSeed,
		Fulfilled:     sess.Fulfilled,
		RandomValue:   sess.RandomValue,
		Claimed:       sess.Claimed,
		CollectibleID: sess.CollectibleID,
		Status:        string(sess.Status),
		CreatedAt:     sess.CreatedAt,
		UpdatedAt:     sess.UpdatedAt,
	}
	if sess.PrizeIndex != nil {
		r.PrizeIndex = sql.NullInt16{Int16: int16(*sess.PrizeIndex), Valid: true}
	}
	if !sess.ResolvedAt.IsZero() {
		r.ResolvedAt = sql.NullTime{Time: sess.ResolvedAt, Valid: true}
	}
	if !sess.ClaimedAt.IsZero() {
		r.ClaimedAt = sql.NullTime{Time: sess.ClaimedAt, Valid: true}
	}
	return r
}

func (r sessionRow) toSession() game.PlaySession {
	sess := game.PlaySession{
		ID:            r.ID,
		GameID:        r.GameID,
		Player:        r.Player,
		AmountPaid:    uint64(r.AmountPaid),
		SessionSeed:   r.SessionSeed,
		Fulfilled:     r.Fulfilled,
		RandomValue:   r.RandomValue,
		Claimed:       r.Claimed,
		CollectibleID: r.CollectibleID,
		Status:        game.SessionStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.PrizeIndex.Valid {
		idx := uint8(r.PrizeIndex.Int16)
		sess.PrizeIndex = &idx
	}
	if r.ResolvedAt.Valid {
		sess.ResolvedAt = r.ResolvedAt.Time
	}
	if r.ClaimedAt.Valid {
		sess.ClaimedAt = r.ClaimedAt.Time
	}
	return sess
}

const sessionColumns = `id, game_id, player, amount_paid, session_seed,
	fulfilled, random_value, prize_index, claimed, collectible_id, status,
	created_at, resolved_at, claimed_at, updated_at`

const insertSessionSQL = `INSERT INTO play_sessions (` + sessionColumns + `) VALUES (
	:id, :game_id, :player, :amount_paid, :session_seed,
	:fulfilled, :random_value, :prize_index, :claimed, :collectible_id, :status,
	:created_at, :resolved_at, :claimed_at, :updated_at)`

const updateSessionSQL = `UPDATE play_sessions SET
	fulfilled = :fulfilled, random_value = :random_value,
	prize_index = :prize_index, claimed = :claimed,
	collectible_id = :collectible_id, status = :status,
	resolved_at = :resolved_at, claimed_at = :claimed_at,
	updated_at = :updated_at
	WHERE id = :id`

func (s *Store) CreateSession(ctx context.Context, sess game.PlaySession) (game.PlaySession, error) {
	if _, err := s.db.NamedExecContext(ctx, insertSessionSQL, toSessionRow(sess)); err != nil {
		return game.PlaySession{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (game.PlaySession, error) {
	var r sessionRow
	err := s.db.GetContext(ctx, &r,
		`SELECT `+sessionColumns+` FROM play_sessions WHERE id = $1`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.PlaySession{}, fmt.Errorf("session not found: %s", sessionID)
		}
		return game.PlaySession{}, fmt.Errorf("get session: %w", err)
	}
	return r.toSession(), nil
}

func (s *Store) UpdateSession(ctx context.Context, sess game.PlaySession) (game.PlaySession, error) {
	res, err := s.db.NamedExecContext(ctx, updateSessionSQL, toSessionRow(sess))
	if err != nil {
		return game.PlaySession{}, fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return game.PlaySession{}, fmt.Errorf("session not found: %s", sess.ID)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM play_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	return nil
}

func (s *Store) ListSessionsByPlayer(ctx context.Context, player string, limit int) ([]game.PlaySession, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM play_sessions WHERE player = $1 ORDER BY created_at DESC LIMIT $2`,
		player, limit)
}

func (s *Store) ListSessionsByGame(ctx context.Context, gameID uint64, limit int) ([]game.PlaySession, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM play_sessions WHERE game_id = $1 ORDER BY created_at DESC LIMIT $2`,
		int64(gameID), limit)
}

func (s *Store) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]game.PlaySession, error) {
	return s.listSessions(ctx,
		`SELECT `+sessionColumns+` FROM play_sessions WHERE status = 'pending' AND created_at < $1 ORDER BY created_at`,
		cutoff)
}

func (s *Store) listSessions(ctx context.Context, query string, args ...interface{}) ([]game.PlaySession, error) {
	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]game.PlaySession, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, r.toSession())
	}
	return sessions, nil
}

func (s *Store) CountPendingByGame(ctx context.Context, gameID uint64) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM play_sessions WHERE game_id = $1 AND status = 'pending'`,
		int64(gameID))
	if err != nil {
		return 0, fmt.Errorf("count pending sessions: %w", err)
	}
	return count, nil
}

// CommitResolution writes the resolved session, the updated game, and the
// decremented prize in one transaction.
func (s *Store) CommitResolution(ctx context.Context, sess game.PlaySession, g game.Game, p *game.Prize) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, updateSessionSQL, toSessionRow(sess)); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if _, err := tx.NamedExecContext(ctx, updateGameSQL, toGameRow(g)); err != nil {
			return fmt.Errorf("update game: %w", err)
		}
		if p != nil {
			if _, err := tx.NamedExecContext(ctx, `UPDATE prizes SET
				supply_remaining = :supply_remaining, updated_at = :updated_at
				WHERE game_id = :game_id AND prize_index = :prize_index`, toPrizeRow(*p)); err != nil {
				return fmt.Errorf("update prize: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) GetStats(ctx context.Context) (game.GameStats, error) {
	stats := game.GameStats{GeneratedAt: time.Now().UTC()}

	err := s.db.GetContext(ctx, &stats.TotalGames, `SELECT COUNT(*) FROM games`)
	if err != nil {
		return game.GameStats{}, fmt.Errorf("count games: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.ActiveGames, `SELECT COUNT(*) FROM games WHERE is_active`); err != nil {
		return game.GameStats{}, fmt.Errorf("count active games: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalPrizes, `SELECT COUNT(*) FROM prizes`); err != nil {
		return game.GameStats{}, fmt.Errorf("count prizes: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalSessions, `SELECT COUNT(*) FROM play_sessions`); err != nil {
		return game.GameStats{}, fmt.Errorf("count sessions: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.PendingSessions, `SELECT COUNT(*) FROM play_sessions WHERE status = 'pending'`); err != nil {
		return game.GameStats{}, fmt.Errorf("count pending sessions: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalPlays, `SELECT COALESCE(SUM(total_plays), 0) FROM games`); err != nil {
		return game.GameStats{}, fmt.Errorf("sum plays: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalWins, `SELECT COUNT(*) FROM play_sessions WHERE prize_index IS NOT NULL`); err != nil {
		return game.GameStats{}, fmt.Errorf("count wins: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalClaimed, `SELECT COUNT(*) FROM play_sessions WHERE claimed`); err != nil {
		return game.GameStats{}, fmt.Errorf("count claimed: %w", err)
	}
	return stats, nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
