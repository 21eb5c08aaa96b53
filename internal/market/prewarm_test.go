package market

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeRefresher struct {
	calls int32
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, symbol string) error {
	atomic.AddInt32(&f.calls, 1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh must run under a deadline")
	}
	return f.err
}

func TestPrewarmerInvalidSchedule(t *testing.T) {
	if _, err := NewPrewarmer(&fakeRefresher{}, nil, "^JKSE", "not a cron", 0); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestPrewarmerRunOnce(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.SetWithTTL("stale", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)

	r := &fakeRefresher{}
	p, err := NewPrewarmer(r, cache, "^JKSE", "*/5 9-16 * * 1-5", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt32(&r.calls) != 1 {
		t.Fatalf("calls = %d", r.calls)
	}
	if cache.Len() != 0 {
		t.Fatal("expired entries should be cleaned")
	}

	r.err = ErrNoData
	if err := p.RunOnce(context.Background()); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected refresh error, got %v", err)
	}
}

func TestPrewarmerStartStop(t *testing.T) {
	p, err := NewPrewarmer(&fakeRefresher{}, nil, "^JKSE", "@every 1h", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	p.Start()
	p.Stop()
}
