package game

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore provides an in-memory implementation of Store. It backs tests
// and the local runtime mode.
type MemoryStore struct {
	mu       sync.RWMutex
	games    map[uint64]Game
	prizes   map[uint64]map[uint8]Prize
	sessions map[string]PlaySession
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:    make(map[uint64]Game),
		prizes:   make(map[uint64]map[uint8]Prize),
		sessions: make(map[string]PlaySession),
	}
}

// Game operations

func (s *MemoryStore) CreateGame(ctx context.Context, g Game) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.GameID]; ok {
		return Game{}, fmt.Errorf("%w: %d", ErrGameExists, g.GameID)
	}
	s.games[g.GameID] = g
	return g, nil
}

func (s *MemoryStore) GetGame(ctx context.Context, gameID uint64) (Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return Game{}, fmt.Errorf("game not found: %d", gameID)
	}
	return g, nil
}

func (s *MemoryStore) UpdateGame(ctx context.Context, g Game) (Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.GameID]; !ok {
		return Game{}, fmt.Errorf("game not found: %d", g.GameID)
	}
	s.games[g.GameID] = g
	return g, nil
}

func (s *MemoryStore) DeleteGame(ctx context.Context, gameID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[gameID]; !ok {
		return fmt.Errorf("game not found: %d", gameID)
	}
	delete(s.games, gameID)
	delete(s.prizes, gameID)
	return nil
}

func (s *MemoryStore) ListGames(ctx context.Context, limit int) ([]Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	games := make([]Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].GameID < games[j].GameID })
	if len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// Prize operations

func (s *MemoryStore) GetPrize(ctx context.Context, gameID uint64, prizeIndex uint8) (Prize, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.prizes[gameID][prizeIndex]
	if !ok {
		return Prize{}, fmt.Errorf("prize not found: game %d index %d", gameID, prizeIndex)
	}
	return p, nil
}

func (s *MemoryStore) UpdatePrize(ctx context.Context, p Prize) (Prize, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prizes[p.GameID][p.PrizeIndex]; !ok {
		return Prize{}, fmt.Errorf("prize not found: game %d index %d", p.GameID, p.PrizeIndex)
	}
	s.prizes[p.GameID][p.PrizeIndex] = p
	return p, nil
}

func (s *MemoryStore) DeletePrize(ctx context.Context, gameID uint64, prizeIndex uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prizes[gameID][prizeIndex]; !ok {
		return fmt.Errorf("prize not found: game %d index %d", gameID, prizeIndex)
	}
	delete(s.prizes[gameID], prizeIndex)
	return nil
}

func (s *MemoryStore) ListPrizes(ctx context.Context, gameID uint64) ([]Prize, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prizes := make([]Prize, 0, len(s.prizes[gameID]))
	for _, p := range s.prizes[gameID] {
		prizes = append(prizes, p)
	}
	sort.Slice(prizes, func(i, j int) bool { return prizes[i].PrizeIndex < prizes[j].PrizeIndex })
	return prizes, nil
}

func (s *MemoryStore) CommitPrize(ctx context.Context, p Prize, g Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.GameID]; !ok {
		return fmt.Errorf("game not found: %d", g.GameID)
	}
	if s.prizes[p.GameID] == nil {
		s.prizes[p.GameID] = make(map[uint8]Prize)
	}
	s.prizes[p.GameID][p.PrizeIndex] = p
	s.games[g.GameID] = g
	return nil
}

// Session operations

func (s *MemoryStore) CreateSession(ctx context.Context, session PlaySession) (PlaySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; ok {
		return PlaySession{}, fmt.Errorf("session already exists: %s", session.ID)
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *MemoryStore) GetSession(ctx context.Context, sessionID string) (PlaySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return PlaySession{}, fmt.Errorf("session not found: %s", sessionID)
	}
	return session, nil
}

func (s *MemoryStore) UpdateSession(ctx context.Context, session PlaySession) (PlaySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return PlaySession{}, fmt.Errorf("session not found: %s", session.ID)
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) ListSessionsByPlayer(ctx context.Context, player string, limit int) ([]PlaySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []PlaySession
	for _, session := range s.sessions {
		if session.Player == player {
			sessions = append(sessions, session)
		}
	}
	sortSessions(sessions)
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *MemoryStore) ListSessionsByGame(ctx context.Context, gameID uint64, limit int) ([]PlaySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []PlaySession
	for _, session := range s.sessions {
		if session.GameID == gameID {
			sessions = append(sessions, session)
		}
	}
	sortSessions(sessions)
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (s *MemoryStore) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]PlaySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []PlaySession
	for _, session := range s.sessions {
		if !session.Fulfilled && session.CreatedAt.Before(cutoff) {
			sessions = append(sessions, session)
		}
	}
	sortSessions(sessions)
	return sessions, nil
}

func (s *MemoryStore) CountPendingByGame(ctx context.Context, gameID uint64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, session := range s.sessions {
		if session.GameID == gameID && !session.Fulfilled {
			count++
		}
	}
	return count, nil
}

// CommitResolution applies the resolved session, the updated game, and the
// decremented prize under one lock acquisition.
func (s *MemoryStore) CommitResolution(ctx context.Context, session PlaySession, g Game, p *Prize) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.ID]; !ok {
		return fmt.Errorf("session not found: %s", session.ID)
	}
	if _, ok := s.games[g.GameID]; !ok {
		return fmt.Errorf("game not found: %d", g.GameID)
	}
	if p != nil {
		if _, ok := s.prizes[p.GameID][p.PrizeIndex]; !ok {
			return fmt.Errorf("prize not found: game %d index %d", p.GameID, p.PrizeIndex)
		}
		s.prizes[p.GameID][p.PrizeIndex] = *p
	}
	s.sessions[session.ID] = session
	s.games[g.GameID] = g
	return nil
}

// Stats

func (s *MemoryStore) GetStats(ctx context.Context) (GameStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := GameStats{GeneratedAt: time.Now().UTC()}
	for _, g := range s.games {
		stats.TotalGames++
		if g.IsActive {
			stats.ActiveGames++
		}
		stats.TotalPlays += int64(g.TotalPlays)
	}
	for _, byIndex := range s.prizes {
		stats.TotalPrizes += int64(len(byIndex))
	}
	for _, session := range s.sessions {
		stats.TotalSessions++
		if !session.Fulfilled {
			stats.PendingSessions++
		}
		if session.PrizeIndex != nil {
			stats.TotalWins++
		}
		if session.Claimed {
			stats.TotalClaimed++
		}
	}
	return stats, nil
}

func sortSessions(sessions []PlaySession) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}

// StaticResolverVerifier accepts one fixed credential for any game. Test
// double for the JWT-backed verifier.
type StaticResolverVerifier struct {
	Credential string
}

// VerifyResolver implements ResolverVerifier.
func (v StaticResolverVerifier) VerifyResolver(credential string, gameID uint64) error {
	if credential != v.Credential {
		return fmt.Errorf("unknown resolver credential")
	}
	return nil
}
