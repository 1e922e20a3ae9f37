package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	errs    []error
}

func (f *fakePruner) PruneBefore(_ context.Context, cutoff time.Time) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return 0, 0, err
	}
	return 2, 1, nil
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSweepUsesMaxAge(t *testing.T) {
	p := &fakePruner{}
	w := NewWorker(p, 90*24*time.Hour, time.Hour, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.Sweep(context.Background())

	if p.calls() != 1 {
		t.Fatalf("PruneBefore called %d times, want 1", p.calls())
	}
	want := now.Add(-90 * 24 * time.Hour)
	if !p.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", p.cutoffs[0], want)
	}
}

func TestSweepRetriesLockedDatabase(t *testing.T) {
	p := &fakePruner{errs: []error{errors.New("database is locked")}}
	w := NewWorker(p, time.Hour, time.Hour, nil)
	w.retry.BaseDelay = time.Millisecond

	w.Sweep(context.Background())

	if p.calls() != 2 {
		t.Errorf("PruneBefore called %d times, want 2", p.calls())
	}
}

func TestSweepDoesNotRetryOtherErrors(t *testing.T) {
	p := &fakePruner{errs: []error{errors.New("disk I/O error")}}
	w := NewWorker(p, time.Hour, time.Hour, nil)

	w.Sweep(context.Background())

	if p.calls() != 1 {
		t.Errorf("PruneBefore called %d times, want 1", p.calls())
	}
}

func TestStartSweepsUntilCanceled(t *testing.T) {
	p := &fakePruner{}
	w := NewWorker(p, time.Hour, 10*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for p.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if p.calls() < 2 {
		t.Fatalf("PruneBefore called %d times, want at least 2", p.calls())
	}
}
