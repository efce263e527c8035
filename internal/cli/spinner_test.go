package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerRendersMessage(t *testing.T) {
	var out syncBuffer
	s := newSpinner(context.Background(), &out, "resolving")
	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.SetMessage("resolving %s", "g:a:1")
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "resolving") || !strings.Contains(got, "g:a:1") {
		t.Errorf("spinner output = %q", got)
	}
	if s.Cancelled() {
		t.Error("Cancelled() = true after plain Stop")
	}
}

func TestSpinnerParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, &syncBuffer{}, "working")
	s.Start()
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after parent cancel")
	}
	if !s.Cancelled() {
		t.Error("Cancelled() = false after parent cancel")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner(context.Background(), &syncBuffer{}, "stop")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}
