package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	cycles atomic.Int64
}

func (r *countingRunner) RunCycle(ctx context.Context) {
	r.cycles.Add(1)
}

func TestRelayJob(t *testing.T) {
	t.Run("runs immediately and then on the ticker", func(t *testing.T) {
		runner := &countingRunner{}
		job := NewRelayJob(runner, 30*time.Millisecond)

		job.Start()
		time.Sleep(100 * time.Millisecond)
		job.Stop()

		cycles := runner.cycles.Load()
		assert.GreaterOrEqual(t, cycles, int64(3))
	})

	t.Run("stop ends the loop", func(t *testing.T) {
		runner := &countingRunner{}
		job := NewRelayJob(runner, 10*time.Millisecond)

		job.Start()
		time.Sleep(30 * time.Millisecond)
		job.Stop()

		settled := runner.cycles.Load()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, settled, runner.cycles.Load())
	})
}
