// Package janitor runs periodic housekeeping for in-memory state.
package janitor

import (
	"context"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSchedule runs just after the UTC day rolls over.
const DefaultSchedule = "5 0 * * *"

// Pruner drops stale entries and reports how many went away.
type Pruner interface {
	Prune() int
}

type Janitor struct {
	cron *rcron.Cron
	log  zerolog.Logger
}

// New schedules every pruner on spec, evaluated in UTC.
func New(spec string, log zerolog.Logger, pruners map[string]Pruner) (*Janitor, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	c := rcron.New(rcron.WithLocation(time.UTC))
	j := &Janitor{cron: c, log: log}

	for name, p := range pruners {
		if _, err := c.AddFunc(spec, func() { j.run(name, p) }); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func (j *Janitor) run(name string, p Pruner) {
	start := time.Now()
	n := p.Prune()
	j.log.Info().Str("job", name).Int("pruned", n).Dur("cost", time.Since(start)).Msg("janitor run")
}

// Start runs the schedule until ctx is done.
func (j *Janitor) Start(ctx context.Context) {
	j.cron.Start()
	j.log.Info().Int("jobs", len(j.cron.Entries())).Msg("janitor started")

	go func() {
		<-ctx.Done()
		stopCtx := j.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(5 * time.Second):
			j.log.Warn().Msg("janitor stop timeout waiting for running jobs")
		}
	}()
}

// RunNow prunes immediately, outside the schedule.
func (j *Janitor) RunNow(pruners map[string]Pruner) {
	for name, p := range pruners {
		j.run(name, p)
	}
}
