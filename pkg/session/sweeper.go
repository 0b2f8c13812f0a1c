package session

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chatgo-dev/chatgo/pkg/observability"
)

// Sweeper periodically retires stale active sessions. It runs on a cron
// schedule, independent of in-flight chat turns; the sweep only
// transitions sessions already past the idle threshold, so it needs no
// coordination with turn processing.
type Sweeper struct {
	manager *Manager
	maxIdle time.Duration
	cron    *cron.Cron
}

// NewSweeper creates a sweeper for the manager. maxIdle is the inactivity
// threshold after which an active session is considered stale.
func NewSweeper(manager *Manager, maxIdle time.Duration) *Sweeper {
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}
	return &Sweeper{
		manager: manager,
		maxIdle: maxIdle,
		cron:    cron.New(),
	}
}

// Start schedules the sweep with the given cron spec (e.g. "@hourly")
// and begins running it in the background.
func (sw *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = "@hourly"
	}
	if _, err := sw.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := sw.Sweep(ctx); err != nil {
			log.Printf("sweeper: sweep failed: %v", err)
		}
	}); err != nil {
		return err
	}
	sw.cron.Start()
	log.Printf("sweeper: started with schedule %q, max idle %s", schedule, sw.maxIdle)
	return nil
}

// Sweep runs a single expiry pass and returns the number of sessions
// retired.
func (sw *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-sw.maxIdle)
	n, err := sw.manager.CleanupExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	observability.RecordSessionsExpired(n)
	return n, nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (sw *Sweeper) Stop() {
	stopCtx := sw.cron.Stop()
	<-stopCtx.Done()
}
