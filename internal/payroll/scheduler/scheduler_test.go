package scheduler

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/paycore/paycore-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeSweeper) SweepStaleCheckIns(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func TestRegisterSweep(t *testing.T) {
	s := New(&fakeSweeper{}, time.UTC, logger.Nop())

	require.NoError(t, s.RegisterSweep(""))
	require.NoError(t, s.RegisterSweep("*/5 * * * *"))
	assert.Len(t, s.cron.Entries(), 2)

	assert.Error(t, s.RegisterSweep("not a schedule"))
}

func TestRunSweep(t *testing.T) {
	fixed := time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)

	t.Run("passes the current time", func(t *testing.T) {
		sweeper := &fakeSweeper{}
		s := New(sweeper, time.UTC, logger.Nop())
		s.now = func() time.Time { return fixed }

		s.runSweep()
		assert.Equal(t, []time.Time{fixed}, sweeper.calls)
	})

	t.Run("failure is logged not propagated", func(t *testing.T) {
		sweeper := &fakeSweeper{err: stderrors.New("db down")}
		s := New(sweeper, time.UTC, logger.Nop())
		s.now = func() time.Time { return fixed }

		assert.NotPanics(t, s.runSweep)
		assert.Len(t, sweeper.calls, 1)
	})
}

func TestStartStop(t *testing.T) {
	s := New(&fakeSweeper{}, nil, logger.Nop())
	require.NoError(t, s.RegisterSweep(DefaultSweepSchedule))

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
