package codehub

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func (s *countingSink) Count() int64 {
	return s.count.Load()
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{gate: make(chan struct{})}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func auditConfig() AuditConfig {
	return AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}
}

func TestDispatcherDeliversEvents(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(auditConfig(), sink)

	d.Emit(context.Background(), AuditEvent{EventType: "login", Success: true})
	d.Close()

	select {
	case ev := <-sink.Events():
		if ev.EventType != "login" || !ev.Success {
			t.Fatalf("unexpected event %+v", ev)
		}
	default:
		t.Fatal("expected delivered event after Close")
	}
}

func TestDispatcherDrainsOnClose(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(auditConfig(), sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login"})
	}
	d.Close()

	if got := sink.Count(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := newGateSink()
	cfg := AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}
	d := newAuditDispatcher(cfg, sink)

	// One event blocks inside the sink, one fills the buffer, the
	// rest must be dropped without blocking the caller.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login"})
	}

	deadline := time.Now().Add(time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}

	close(sink.gate)
	d.Close()
}

func TestDispatcherDisabled(t *testing.T) {
	sink := &countingSink{}
	d := newAuditDispatcher(AuditConfig{Enabled: false}, sink)

	d.Emit(context.Background(), AuditEvent{EventType: "login"})
	d.Close()

	if got := sink.Count(); got != 0 {
		t.Fatalf("expected no events from disabled dispatcher, got %d", got)
	}
}

func TestEngineEmitsAuditEvents(t *testing.T) {
	_, rdb := newTestRedis(t)
	sink := NewChannelSink(64)

	cfg := testConfig()
	cfg.Audit = auditConfig()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	registerAccount(t, engine, "alice", "alice@example.com")
	engine.Logout(context.Background())
	engine.Close()

	var kinds []string
	for {
		select {
		case ev := <-sink.Events():
			kinds = append(kinds, ev.EventType)
			continue
		default:
		}
		break
	}

	want := []string{"register", "logout"}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, kinds)
		}
	}
}
