package userlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLock_SerializesSameKey(t *testing.T) {
	l := New()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "u1")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("critical section overlapped: max %d holders", maxInside)
	}
	if l.Len() != 0 {
		t.Fatalf("entries leaked: %d", l.Len())
	}
}

func TestLock_DifferentKeysDoNotBlock(t *testing.T) {
	l := New()
	unlockA, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b blocked behind a: %v", err)
	}
	unlockB()
}

func TestLock_ContextCancelWhileWaiting(t *testing.T) {
	l := New()
	unlock, err := l.Lock(context.Background(), "u")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "u"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	unlock()
	if l.Len() != 0 {
		t.Fatalf("cancelled waiter leaked an entry: %d", l.Len())
	}
}

func TestLock_UnlockIsIdempotent(t *testing.T) {
	l := New()
	unlock, err := l.Lock(context.Background(), "u")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	unlock()
	unlock()

	again, err := l.Lock(context.Background(), "u")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}
