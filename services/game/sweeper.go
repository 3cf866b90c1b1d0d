package game

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gachapon-labs/gachapon/pkg/logger"
)

// Sweeper periodically reports pending sessions whose resolution is overdue.
// A pending session has no deadline and no refund path; the sweeper only
// surfaces the backlog so operators notice a resolver that stopped acting.
type Sweeper struct {
	store    Store
	log      *logger.Logger
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
}

// NewSweeper creates a sweeper. schedule is a cron expression; maxAge is the
// pending age beyond which a session counts as stale.
func NewSweeper(store Store, log *logger.Logger, schedule string, maxAge time.Duration) *Sweeper {
	if schedule == "" {
		schedule = "*/10 * * * *"
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Sweeper{
		store:    store,
		log:      log,
		maxAge:   maxAge,
		schedule: schedule,
	}
}

// Start schedules the sweep. It returns an error only for a bad schedule.
func (s *Sweeper) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

// Sweep runs one pass and returns the stale sessions found.
func (s *Sweeper) Sweep(ctx context.Context) []PlaySession {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	stale, err := s.store.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		s.log.WithError(err).Warn("pending session sweep failed")
		return nil
	}
	if len(stale) == 0 {
		return nil
	}

	byGame := make(map[uint64]int)
	for _, session := range stale {
		byGame[session.GameID]++
	}
	for gameID, count := range byGame {
		s.log.WithField("game_id", gameID).
			WithField("stale_pending", count).
			WithField("older_than", s.maxAge.String()).
			Warn("pending sessions awaiting resolution")
	}
	return stale
}
