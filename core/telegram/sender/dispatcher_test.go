package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatcherRunsJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2})
	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if err := d.Enqueue(context.Background(), "send.text", func() error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	d.Close()
	if ran.Load() != 5 {
		t.Fatalf("ran = %d, want 5", ran.Load())
	}
	if sent, failed := d.Stats(); sent != 5 || failed != 0 {
		t.Fatalf("stats = %d/%d", sent, failed)
	}
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	_ = d.Enqueue(context.Background(), "send.text", func() error {
		if calls.Add(1) < 3 {
			return dialErr
		}
		return nil
	})
	d.Close()
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if sent, _ := d.Stats(); sent != 1 {
		t.Fatalf("sent = %d", sent)
	}
}

func TestDispatcherDoesNotRetryPermanentErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	_ = d.Enqueue(context.Background(), "send.text", func() error {
		calls.Add(1)
		return errors.New("telegram: bad request: chat not found (400)")
	})
	d.Close()
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
	if _, failed := d.Stats(); failed != 1 {
		t.Fatalf("failed = %d", failed)
	}
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	if err := d.Enqueue(context.Background(), "send.text", func() error { return nil }); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	_ = d.Enqueue(context.Background(), "block", func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	_ = d.Enqueue(context.Background(), "queued", func() error { return nil })
	err := d.Enqueue(context.Background(), "overflow", func() error { return nil })
	close(release)
	d.Close()
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestSanitizeErrorMessage(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAH-x_y/sendMessage": EOF`)
	got := sanitizeErrorMessage(err)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF` {
		t.Fatalf("sanitized = %q", got)
	}
}
