package connector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollConnector_EmitsItems(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		polls.Add(1)
		w.Write([]byte(`[{"baseToken":{"address":"m1"}},{"baseToken":{"address":"m2"}}]`))
	}))
	defer srv.Close()

	p := NewPollConnector(PollOptions{
		Name:     "test-poll",
		Endpoint: srv.URL,
		Interval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The first poll runs immediately and yields both items.
	for i := 0; i < 2; i++ {
		select {
		case ev := <-p.Events():
			if ev.Source != "test-poll" || len(ev.Payload) == 0 {
				t.Errorf("event %d wrong: %+v", i, ev)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for item %d", i)
		}
	}
	if p.State() != StateConnected {
		t.Errorf("expected CONNECTED, got %s", p.State())
	}

	p.Stop()
	if p.State() != StateDisconnected {
		t.Errorf("expected DISCONNECTED after Stop, got %s", p.State())
	}
}

func TestPollConnector_EnvelopeResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[{"baseToken":{"address":"m1"}}]}`))
	}))
	defer srv.Close()

	p := NewPollConnector(PollOptions{
		Name:     "test-poll",
		Endpoint: srv.URL,
		Interval: time.Minute, // only the immediate poll
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case ev := <-p.Events():
		if string(ev.Payload) != `{"baseToken":{"address":"m1"}}` {
			t.Errorf("payload wrong: %s", ev.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for enveloped item")
	}
	p.Stop()
}

func TestPollConnector_FailureEntersBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPollConnector(PollOptions{
		Name:     "test-poll",
		Endpoint: srv.URL,
		Interval: time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The immediate poll fails and parks the connector in backoff; it must
	// not report CONNECTED while the first delay elapses.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.State() == StateConnecting {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if p.State() != StateConnecting {
		t.Errorf("expected CONNECTING during backoff, got %s", p.State())
	}
	p.Stop()
}

func TestPollConnector_StartAfterStop(t *testing.T) {
	p := NewPollConnector(PollOptions{Name: "test-poll", Endpoint: "http://127.0.0.1:0", Interval: time.Minute})

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	p.Stop()
	p.Stop() // idempotent

	if err := p.Start(ctx); err == nil {
		t.Error("Start after Stop must fail")
	}
}
