package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rankscout/rankscout/internal/research"
)

func TestLedger_Lifecycle(t *testing.T) {
	l := NewLedger[string]()

	id := l.Register("serp")
	if st, ok := l.Status(id); !ok || st != research.StatusPending {
		t.Fatalf("status = %v/%v, want pending", st, ok)
	}

	l.MarkInProgress(id)
	l.Complete(id, "result", 0.02)

	e, ok := l.Get(id)
	if !ok || e.Status != research.StatusCompleted || e.Result != "result" || e.Cost != 0.02 {
		t.Errorf("entry = %+v", e)
	}
	if e.CompletedAt.IsZero() {
		t.Errorf("completed entry should carry a completion time")
	}
}

func TestLedger_TerminalIsImmutable(t *testing.T) {
	l := NewLedger[string]()
	id := l.Register("serp")

	l.Fail(id, "boom")
	l.Complete(id, "late", 0)

	e, _ := l.Get(id)
	if e.Status != research.StatusFailed || e.Result != "" {
		t.Errorf("terminal entry mutated: %+v", e)
	}
}

func TestLedger_UnknownID(t *testing.T) {
	l := NewLedger[int]()
	if _, ok := l.Status("missing"); ok {
		t.Errorf("unknown id should not resolve")
	}
}

func TestLedger_EvictTerminal(t *testing.T) {
	l := NewLedger[string]()

	done := l.Register("serp")
	l.Complete(done, "x", 0)
	pending := l.Register("serp")

	// Retention of zero means any terminal entry qualifies immediately.
	if n := l.EvictTerminal(0); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if _, ok := l.Get(done); ok {
		t.Errorf("terminal entry should be gone")
	}
	if _, ok := l.Get(pending); !ok {
		t.Errorf("pending entry must survive eviction")
	}
}

func TestWaitForAll_ReturnsEveryID(t *testing.T) {
	l := NewLedger[string]()
	a := l.Register("serp")
	b := l.Register("serp")

	calls := 0
	resolve := func(ctx context.Context, id string) (string, bool, error) {
		calls++
		// b resolves one tick later than a
		if id == b && calls < 3 {
			return "", false, nil
		}
		return "done-" + id, true, nil
	}

	results, err := l.WaitForAll(context.Background(), "test", []string{a, b}, time.Second, time.Millisecond, resolve)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[a] != "done-"+a || results[b] != "done-"+b {
		t.Errorf("results aggregated incorrectly: %v", results)
	}
}

func TestWaitForAll_TimeoutNeverPartial(t *testing.T) {
	l := NewLedger[string]()
	a := l.Register("serp")
	b := l.Register("serp")

	resolve := func(ctx context.Context, id string) (string, bool, error) {
		if id == a {
			return "done", true, nil
		}
		return "", false, nil // b never resolves
	}

	results, err := l.WaitForAll(context.Background(), "test", []string{a, b}, 20*time.Millisecond, 5*time.Millisecond, resolve)
	if results != nil {
		t.Fatalf("timeout must not return a partial map, got %v", results)
	}
	var terr *research.TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if len(terr.Pending) != 1 || terr.Pending[0] != b {
		t.Errorf("pending = %v, want [%s]", terr.Pending, b)
	}
}

func TestWaitForAll_ResolverErrorAborts(t *testing.T) {
	l := NewLedger[string]()
	a := l.Register("serp")

	boom := errors.New("boom")
	_, err := l.WaitForAll(context.Background(), "test", []string{a}, time.Second, time.Millisecond,
		func(ctx context.Context, id string) (string, bool, error) { return "", false, boom })
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want the resolver's error", err)
	}
}

func TestWaitForAll_ContextCancellation(t *testing.T) {
	l := NewLedger[string]()
	a := l.Register("serp")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.WaitForAll(ctx, "test", []string{a}, time.Second, 50*time.Millisecond,
		func(ctx context.Context, id string) (string, bool, error) { return "", false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
