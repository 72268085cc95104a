package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"creditwatch/internal/fingerprint"
)

func frameAt(second int) Frame {
	return Frame{Key: fingerprint.Key{FromStart: second, Episode: 1}}
}

func TestQueueBackpressure(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(3)

	for i := 0; i < 3; i++ {
		if err := q.Put(ctx, frameAt(i), 10*time.Millisecond); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	for i := 3; i < 5; i++ {
		if err := q.Put(ctx, frameAt(i), 10*time.Millisecond); !errors.Is(err, ErrQueueTimeout) {
			t.Fatalf("put %d: expected ErrQueueTimeout, got %v", i, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		f, err := q.Get(ctx, 10*time.Millisecond)
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if f.Key.FromStart != i {
			t.Fatalf("get %d returned frame %d", i, f.Key.FromStart)
		}
		if seen[f.Key.FromStart] {
			t.Fatalf("frame %d returned twice", f.Key.FromStart)
		}
		seen[f.Key.FromStart] = true
		q.Done()
	}
	if _, err := q.Get(ctx, 10*time.Millisecond); !errors.Is(err, ErrQueueTimeout) {
		t.Fatalf("expected empty queue timeout, got %v", err)
	}

	joinCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := q.Join(joinCtx); err != nil {
		t.Fatalf("Join after draining: %v", err)
	}
}

func TestQueueJoinWaitsForDone(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(1)
	if err := q.Put(ctx, frameAt(1), time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := q.Join(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Join should block while a frame is pending, got %v", err)
	}

	if _, err := q.Get(ctx, time.Second); err != nil {
		t.Fatalf("get: %v", err)
	}
	q.Done()
	if err := q.Join(ctx); err != nil {
		t.Fatalf("Join: %v", err)
	}
}

func TestQueueCloseAcceptsTerminal(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(2)
	q.Close()
	if err := q.Put(ctx, frameAt(1), time.Millisecond); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
	if err := q.PutTerminal(ctx, time.Millisecond); err != nil {
		t.Fatalf("PutTerminal after Close: %v", err)
	}
	f, err := q.Get(ctx, time.Millisecond)
	if err != nil || !f.Terminal() {
		t.Fatalf("expected terminal entry, got %+v %v", f, err)
	}
}

func TestQueueHonoursContext(t *testing.T) {
	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Get(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := q.Put(context.Background(), frameAt(1), 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := q.Put(ctx, frameAt(2), 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
