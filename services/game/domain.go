// Package game provides the gachapon prize-draw service: weighted blind-box
// games with limited prize supply, paid play sessions resolved by an
// externally supplied random value, and collectible issuance on wins.
package game

import "time"

// MaxPrizes is the fixed capacity of a game's probability table.
const MaxPrizes = 16

// TotalBasisPoints is the full probability budget. The shortfall between a
// table's weight sum and this value is the implicit loss probability.
const TotalBasisPoints = 10000

// RandomValueSize is the size of the externally supplied random value.
const RandomValueSize = 32

// String length limits, matching the on-chain account layout.
const (
	MaxNameLen             = 50
	MaxGameDescriptionLen  = 200
	MaxPrizeDescriptionLen = 150
	MaxURLLen              = 200
	MaxSKULen              = 50
)

// PrizeTier orders prizes for display. Ordering is cosmetic only; draw
// weights are carried separately in basis points.
type PrizeTier string

const (
	TierCommon    PrizeTier = "common"
	TierUncommon  PrizeTier = "uncommon"
	TierRare      PrizeTier = "rare"
	TierLegendary PrizeTier = "legendary"
)

// Valid reports whether the tier is one of the defined values.
func (t PrizeTier) Valid() bool {
	switch t {
	case TierCommon, TierUncommon, TierRare, TierLegendary:
		return true
	}
	return false
}

// Game is one configured draw offering. Prizes are separately addressable
// records; the game holds denormalized weight and supply arrays kept in
// lock-step by the prize mutators so resolution never needs a table scan
// across prize records.
type Game struct {
	GameID            uint64    `json:"game_id"`
	Authority         string    `json:"authority"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	ImageURL          string    `json:"image_url"`
	TokenDenomination string    `json:"token_denomination"`
	CostUSD           uint64    `json:"cost_usd"`
	Treasury          string    `json:"treasury"`

	PrizeCount           uint8               `json:"prize_count"`
	PrizeProbabilities   [MaxPrizes]uint16   `json:"prize_probabilities"`
	PrizeSupplies        [MaxPrizes]uint32   `json:"prize_supplies"`
	TotalSupplyRemaining uint32              `json:"total_supply_remaining"`

	TotalPlays      uint64 `json:"total_plays"`
	IsActive        bool   `json:"is_active"`
	LastRandomValue []byte `json:"last_random_value,omitempty"`

	// InlineIssuance selects the resolution variant: when true, a winning
	// resolution mints the collectible immediately and the session lands in
	// the claimed state; when false, the winning index is recorded and a
	// separate Claim call mints.
	InlineIssuance bool `json:"inline_issuance"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Prize is one possible draw outcome, keyed (game_id, prize_index). The
// probability weight is immutable once set; only supply changes, via
// replenishment and wins.
type Prize struct {
	GameID     uint64 `json:"game_id"`
	PrizeIndex uint8  `json:"prize_index"`
	PrizeID    uint64 `json:"prize_id"`

	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	MetadataURI string    `json:"metadata_uri"`
	PhysicalSKU string    `json:"physical_sku"`
	Tier        PrizeTier `json:"tier"`

	ProbabilityBP uint16 `json:"probability_bp"`
	CostUSD       uint64 `json:"cost_usd"`

	// Physical shipping attributes for redeemable prizes.
	WeightGrams      uint32 `json:"weight_grams"`
	LengthHundredths uint16 `json:"length_hundredths"`
	WidthHundredths  uint16 `json:"width_hundredths"`
	HeightHundredths uint16 `json:"height_hundredths"`

	SupplyTotal     uint32 `json:"supply_total"`
	SupplyRemaining uint32 `json:"supply_remaining"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionStatus is the lifecycle state of a play session. Closing a session
// removes the record, so there is no terminal "closed" status value.
type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusLost    SessionStatus = "lost"
	SessionStatusWon     SessionStatus = "won"
	SessionStatusClaimed SessionStatus = "claimed"
)

// PlaySession records one player's single paid attempt. The ID is derived
// deterministically from (game, player, seed) so a repeat submission
// addresses the same logical record.
type PlaySession struct {
	ID         string `json:"id"`
	GameID     uint64 `json:"game_id"`
	Player     string `json:"player"`
	AmountPaid uint64 `json:"amount_paid"`

	// SessionSeed is the client-chosen 32-byte seed, hex encoded. It keeps
	// repeat plays by the same player from colliding on the derived ID.
	SessionSeed string `json:"session_seed"`

	Fulfilled   bool   `json:"fulfilled"`
	RandomValue []byte `json:"random_value,omitempty"`

	// PrizeIndex is the winning index once resolved; nil means loss (or not
	// yet resolved when Fulfilled is false).
	PrizeIndex *uint8 `json:"prize_index,omitempty"`

	Claimed       bool   `json:"claimed"`
	CollectibleID string `json:"collectible_id,omitempty"`

	Status     SessionStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt time.Time     `json:"resolved_at,omitempty"`
	ClaimedAt  time.Time     `json:"claimed_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Resolution is the outcome of resolving one session.
type Resolution struct {
	SessionID     string     `json:"session_id"`
	GameID        uint64     `json:"game_id"`
	Player        string     `json:"player"`
	Won           bool       `json:"won"`
	PrizeIndex    *uint8     `json:"prize_index,omitempty"`
	PrizeID       *uint64    `json:"prize_id,omitempty"`
	Tier          *PrizeTier `json:"tier,omitempty"`
	CollectibleID string     `json:"collectible_id,omitempty"`
	RandomValue   []byte     `json:"random_value"`
	ResolvedAt    time.Time  `json:"resolved_at"`
}

// GameParams carries the caller-supplied fields for game creation.
type GameParams struct {
	GameID            uint64 `json:"game_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	ImageURL          string `json:"image_url"`
	TokenDenomination string `json:"token_denomination"`
	CostUSD           uint64 `json:"cost_usd"`
	Treasury          string `json:"treasury"`
	InlineIssuance    bool   `json:"inline_issuance"`
}

// PrizeParams carries the caller-supplied fields for prize addition.
type PrizeParams struct {
	PrizeIndex       uint8     `json:"prize_index"`
	PrizeID          uint64    `json:"prize_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ImageURL         string    `json:"image_url"`
	MetadataURI      string    `json:"metadata_uri"`
	PhysicalSKU      string    `json:"physical_sku"`
	Tier             PrizeTier `json:"tier"`
	ProbabilityBP    uint16    `json:"probability_bp"`
	CostUSD          uint64    `json:"cost_usd"`
	WeightGrams      uint32    `json:"weight_grams"`
	LengthHundredths uint16    `json:"length_hundredths"`
	WidthHundredths  uint16    `json:"width_hundredths"`
	HeightHundredths uint16    `json:"height_hundredths"`
	SupplyTotal      uint32    `json:"supply_total"`
}

// GameStats provides service-wide statistics.
type GameStats struct {
	TotalGames      int64     `json:"total_games"`
	ActiveGames     int64     `json:"active_games"`
	TotalPrizes     int64     `json:"total_prizes"`
	TotalSessions   int64     `json:"total_sessions"`
	PendingSessions int64     `json:"pending_sessions"`
	TotalPlays      int64     `json:"total_plays"`
	TotalWins       int64     `json:"total_wins"`
	TotalClaimed    int64     `json:"total_claimed"`
	GeneratedAt     time.Time `json:"generated_at"`
}
