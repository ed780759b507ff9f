package janitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cv-optimizer/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecoverer struct {
	mu      sync.Mutex
	befores []time.Time
	err     error
}

func (f *fakeRecoverer) RecoverStale(_ context.Context, before time.Time) (usecase.Recovery, error) {
	f.mu.Lock()
	f.befores = append(f.befores, before)
	f.mu.Unlock()
	return usecase.Recovery{Failed: 1}, f.err
}

func TestSweepUsesStaleCutoff(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeRecoverer{}
	j := New(f, "@every 1h", 30*time.Minute, nil)
	j.now = func() time.Time { return now }

	j.Sweep(context.Background())

	require.Len(t, f.befores, 1)
	assert.Equal(t, now.Add(-30*time.Minute), f.befores[0])
}

func TestSweepSurvivesErrors(t *testing.T) {
	f := &fakeRecoverer{err: errors.New("db down")}
	j := New(f, "@every 1h", time.Minute, nil)
	j.Sweep(context.Background())
	assert.Len(t, f.befores, 1)
}

func TestSweepSkipsCancelledContext(t *testing.T) {
	f := &fakeRecoverer{}
	j := New(f, "@every 1h", time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Sweep(ctx)
	assert.Empty(t, f.befores)
}

func TestStartSweepsBeforeReturning(t *testing.T) {
	f := &fakeRecoverer{}
	j := New(f, "@every 1h", time.Minute, nil)
	require.NoError(t, j.Start(context.Background()))
	defer j.Stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Len(t, f.befores, 1)
}

func TestStartRejectsBadSpec(t *testing.T) {
	f := &fakeRecoverer{}
	j := New(f, "every so often", time.Minute, nil)
	assert.Error(t, j.Start(context.Background()))
	assert.Empty(t, f.befores)
}
