package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// CycleRunner is one synchronous relay pass.
type CycleRunner interface {
	RunCycle(ctx context.Context)
}

// RelayJob drives the relay on a fixed ticker. Cycles run synchronously;
// a slow cycle delays the next tick rather than overlapping it.
type RelayJob struct {
	runner       CycleRunner
	interval     time.Duration
	cycleTimeout time.Duration
	done         chan struct{}
}

func NewRelayJob(runner CycleRunner, interval time.Duration) *RelayJob {
	return &RelayJob{
		runner:       runner,
		interval:     interval,
		cycleTimeout: 2 * time.Minute,
		done:         make(chan struct{}),
	}
}

func (j *RelayJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("relay job started")
}

func (j *RelayJob) Stop() {
	close(j.done)
	log.Info().Msg("relay job stopped")
}

func (j *RelayJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cycle()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cycle()
		}
	}
}

func (j *RelayJob) cycle() {
	ctx, cancel := context.WithTimeout(context.Background(), j.cycleTimeout)
	defer cancel()

	j.runner.RunCycle(ctx)
}
