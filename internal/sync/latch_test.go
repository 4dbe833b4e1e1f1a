package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestLatch(t *testing.T) {
	ctx := context.Background()
	l := new(Latch[int])

	// All Wait()ing go routines MUST only unblock when Resolve() is called, but
	// no sooner.
	group, gCtx := errgroup.WithContext(ctx)
	unblocked := new(uint64)
	for i := 0; i < 10; i++ {
		group.Go(func() error {
			got, err := l.Wait(gCtx)
			if err != nil {
				return err
			}
			if got != 42 {
				return errors.New("wrong value")
			}
			atomic.AddUint64(unblocked, 1)
			return nil
		})
	}

	t.Run("blocks", func(t *testing.T) {
		const timeout = 100 * time.Millisecond
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if _, got := l.Wait(ctx); got != context.DeadlineExceeded {
			t.Errorf("%T.Wait([ctx with deadline]) got %v; want %v", l, got, context.DeadlineExceeded)
		}
		if n := atomic.LoadUint64(unblocked); n > 0 {
			t.Fatalf("%d go routines unblocked", n)
		}
		if l.Resolved() {
			t.Errorf("%T.Resolved() got true before Resolve()", l)
		}
	})

	t.Run("Resolve() unblocks", func(t *testing.T) {
		if err := l.Resolve(42); err != nil {
			t.Fatalf("%T.Resolve() error %v", l, err)
		}
		if err := group.Wait(); err != nil {
			t.Errorf("%T.Wait(ctx) error %v", l, err)
		}
		if got, want := atomic.LoadUint64(unblocked), uint64(10); got != want {
			t.Errorf("%d go routines unblocked; want %d", got, want)
		}
	})
}

func TestLatchLateWait(t *testing.T) {
	l := new(Latch[string])
	if err := l.Resolve("done"); err != nil {
		t.Fatalf("%T.Resolve() error %v", l, err)
	}

	// Wait()ing on a resolved Latch MUST NOT block, even if Wait() was called
	// late.
	for i := 0; i < 5; i++ {
		got, err := l.Wait(context.Background())
		if err != nil || got != "done" {
			t.Errorf("%T.Wait() got (%q, %v); want (%q, nil)", l, got, err, "done")
		}
	}
}

func TestLatchReject(t *testing.T) {
	ctx := context.Background()
	l := new(Latch[*int])
	wantErr := errors.New("reverted")

	waited := make(chan error, 1)
	go func() {
		got, err := l.Wait(ctx)
		if err == nil && got != nil {
			err = errors.New("non-nil value after Reject()")
		}
		waited <- err
	}()

	if err := l.Reject(wantErr); err != nil {
		t.Fatalf("%T.Reject() error %v", l, err)
	}
	if err := <-waited; !errors.Is(err, wantErr) {
		t.Errorf("%T.Wait() got err %v; want %v", l, err, wantErr)
	}
}

func TestLatchResolvesOnce(t *testing.T) {
	l := new(Latch[int])
	if err := l.Resolve(1); err != nil {
		t.Fatalf("%T.Resolve(1) error %v", l, err)
	}
	if got, want := l.Resolve(2), ErrAlreadyResolved; got != want {
		t.Errorf("second %T.Resolve() got %v; want %v", l, got, want)
	}
	if got, want := l.Reject(errors.New("x")), ErrAlreadyResolved; got != want {
		t.Errorf("%T.Reject() after Resolve() got %v; want %v", l, got, want)
	}
	if err := l.Reject(nil); err == nil {
		t.Errorf("%T.Reject(nil) got nil error", l)
	}

	got, err := l.Wait(context.Background())
	if err != nil || got != 1 {
		t.Errorf("%T.Wait() got (%d, %v); want (1, nil)", l, got, err)
	}
}
