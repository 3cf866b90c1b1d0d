package game

import (
	"context"
	"time"
)

// Store defines the persistence interface for game data.
//
// The Commit* methods write several records as one unit: the surrounding
// store must apply all of them or none, so no reader observes a game whose
// activity flag disagrees with its supply counters.
type Store interface {
	// Game operations
	CreateGame(ctx context.Context, g Game) (Game, error)
	GetGame(ctx context.Context, gameID uint64) (Game, error)
	UpdateGame(ctx context.Context, g Game) (Game, error)
	DeleteGame(ctx context.Context, gameID uint64) error
	ListGames(ctx context.Context, limit int) ([]Game, error)

	// Prize operations
	GetPrize(ctx context.Context, gameID uint64, prizeIndex uint8) (Prize, error)
	UpdatePrize(ctx context.Context, p Prize) (Prize, error)
	DeletePrize(ctx context.Context, gameID uint64, prizeIndex uint8) error
	ListPrizes(ctx context.Context, gameID uint64) ([]Prize, error)

	// CommitPrize writes a prize record (insert or update) together with its
	// game's updated table in one unit.
	CommitPrize(ctx context.Context, p Prize, g Game) error

	// Session operations
	CreateSession(ctx context.Context, s PlaySession) (PlaySession, error)
	GetSession(ctx context.Context, sessionID string) (PlaySession, error)
	UpdateSession(ctx context.Context, s PlaySession) (PlaySession, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessionsByPlayer(ctx context.Context, player string, limit int) ([]PlaySession, error)
	ListSessionsByGame(ctx context.Context, gameID uint64, limit int) ([]PlaySession, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]PlaySession, error)
	CountPendingByGame(ctx context.Context, gameID uint64) (int64, error)

	// CommitResolution writes the resolved session, the updated game, and the
	// decremented prize (nil on a loss) in one unit.
	CommitResolution(ctx context.Context, s PlaySession, g Game, p *Prize) error

	// Stats
	GetStats(ctx context.Context) (GameStats, error)
}

// TokenLedger moves fungible balances. Fee collection and treasury
// withdrawal are single checked transfers; a transfer failure aborts the
// whole operation.
type TokenLedger interface {
	Transfer(ctx context.Context, from, to string, amount uint64, denomination string) error
}

// CollectibleIssuer mints exactly one non-fungible unit to an owner,
// authority-bound to the game so the game, not any individual, issues.
type CollectibleIssuer interface {
	MintOne(ctx context.Context, owner, collectionAuthority, name, uri, tier string) (string, error)
}

// ResolverVerifier checks the credential presented with a Resolve call,
// proving the caller is the designated resolver for the game.
type ResolverVerifier interface {
	VerifyResolver(credential string, gameID uint64) error
}
