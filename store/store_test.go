package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/praveen-sk-07/codegen-code-hub/internal/clock"
)

func newTestRedisKV(t *testing.T) *RedisKV {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisKV(client)
}

func newTestStore(t *testing.T, clk clock.Clock) (*Store, KV, KV) {
	t.Helper()

	eph := NewMemoryKV(clk)
	per := newTestRedisKV(t)
	s, err := NewStore(eph, per, Config{
		Prefix: "codehub",
		TTL:    7 * 24 * time.Hour,
		Clock:  clk,
	})
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	return s, eph, per
}

func TestWriteThroughBothScopes(t *testing.T) {
	ctx := context.Background()
	s, eph, per := newTestStore(t, nil)

	rec := &Record{AccountID: "acct-1", Token: "tok", Remember: true}
	if err := s.WriteThrough(ctx, rec); err != nil {
		t.Fatalf("WriteThrough error: %v", err)
	}
	if rec.LastSync == 0 {
		t.Fatal("expected LastSync to be stamped")
	}

	for name, kv := range map[string]KV{"ephemeral": eph, "persistent": per} {
		data, err := kv.Get(ctx, "codehub:session")
		if err != nil {
			t.Fatalf("%s scope Get error: %v", name, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("%s scope Decode error: %v", name, err)
		}
		if got.AccountID != "acct-1" || got.Token != "tok" {
			t.Fatalf("%s scope holds wrong record: %+v", name, got)
		}
	}
}

func TestWriteThroughWithoutRememberClearsPersistent(t *testing.T) {
	ctx := context.Background()
	s, _, per := newTestStore(t, nil)

	remembered := &Record{AccountID: "acct-1", Token: "tok", Remember: true}
	if err := s.WriteThrough(ctx, remembered); err != nil {
		t.Fatalf("WriteThrough error: %v", err)
	}

	forgotten := &Record{AccountID: "acct-2", Token: "tok2", Remember: false}
	if err := s.WriteThrough(ctx, forgotten); err != nil {
		t.Fatalf("WriteThrough error: %v", err)
	}

	if _, err := per.Get(ctx, "codehub:session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected persistent scope to be cleared, got err=%v", err)
	}
}

func TestLoadAbsentReturnsNil(t *testing.T) {
	s, _, _ := newTestStore(t, nil)

	rec, err := s.Load(context.Background(), ScopePersistent)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestLoadCorruptBlobReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	s, _, per := newTestStore(t, nil)

	if err := per.Set(ctx, "codehub:session", []byte("{not json"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	_, err := s.Load(ctx, ScopePersistent)
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}

	// The corrupt blob must be gone so it cannot shadow later writes.
	if _, err := per.Get(ctx, "codehub:session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected corrupt blob to be deleted, got err=%v", err)
	}
}

func TestReconcileNewerWins(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	s, eph, per := newTestStore(t, clk)

	older, err := Encode(&Record{AccountID: "stale", Token: "old", Remember: true, LastSync: 1000})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	newer, err := Encode(&Record{AccountID: "fresh", Token: "new", Remember: true, LastSync: 2000})
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	if err := eph.Set(ctx, "codehub:session", older, 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := per.Set(ctx, "codehub:session", newer, 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	winner, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if winner.AccountID != "fresh" {
		t.Fatalf("expected persistent record to win, got %+v", winner)
	}

	// Winner must be re-propagated to the losing scope.
	data, err := eph.Get(ctx, "codehub:session")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if got.AccountID != "fresh" {
		t.Fatalf("expected ephemeral scope rewritten with winner, got %+v", got)
	}
}

func TestReconcileTiePrefersEphemeral(t *testing.T) {
	ctx := context.Background()
	s, eph, per := newTestStore(t, nil)

	a, _ := Encode(&Record{AccountID: "a", Token: "t", Remember: true, LastSync: 5000})
	b, _ := Encode(&Record{AccountID: "b", Token: "t", Remember: true, LastSync: 5000})

	if err := eph.Set(ctx, "codehub:session", a, 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := per.Set(ctx, "codehub:session", b, 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	winner, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if winner.AccountID != "a" {
		t.Fatalf("expected ephemeral record to win the tie, got %+v", winner)
	}
}

func TestReconcileSurvivesCorruptScope(t *testing.T) {
	ctx := context.Background()
	s, eph, per := newTestStore(t, nil)

	healthy, _ := Encode(&Record{AccountID: "acct-1", Token: "t", Remember: true, LastSync: 100})
	if err := eph.Set(ctx, "codehub:session", healthy, 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := per.Set(ctx, "codehub:session", []byte("garbage"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	winner, err := s.Reconcile(ctx)
	if !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected corruption to be reported, got %v", err)
	}
	if winner == nil || winner.AccountID != "acct-1" {
		t.Fatalf("expected healthy record to win despite corruption, got %+v", winner)
	}
}

func TestReconcileEmpty(t *testing.T) {
	s, _, _ := newTestStore(t, nil)

	winner, err := s.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if winner != nil {
		t.Fatalf("expected no winner, got %+v", winner)
	}
}

func TestClearRemovesBothScopes(t *testing.T) {
	ctx := context.Background()
	s, eph, per := newTestStore(t, nil)

	if err := s.WriteThrough(ctx, &Record{AccountID: "acct-1", Token: "t", Remember: true}); err != nil {
		t.Fatalf("WriteThrough error: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear error: %v", err)
	}

	for name, kv := range map[string]KV{"ephemeral": eph, "persistent": per} {
		if _, err := kv.Get(ctx, "codehub:session"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected %s scope cleared, got err=%v", name, err)
		}
	}
}

func TestDeviceIDStable(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t, nil)

	first, err := s.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID error: %v", err)
	}
	if first == "" {
		t.Fatal("expected non-empty device id")
	}

	second, err := s.DeviceID(ctx)
	if err != nil {
		t.Fatalf("DeviceID error: %v", err)
	}
	if second != first {
		t.Fatalf("expected stable device id, got %q then %q", first, second)
	}
}

func TestMemoryKVHonorsTTL(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	kv := NewMemoryKV(clk)

	if err := kv.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); err != nil {
		t.Fatalf("Get error: %v", err)
	}

	clk.Advance(time.Minute)
	if _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired key to read as absent, got err=%v", err)
	}
}

func TestMemoryKVExpiredReadKeepsConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFake(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	kv := NewMemoryKV(clk)

	// A Get that observes an expired entry must not evict a fresh
	// value written while it waited for the write lock.
	for i := 0; i < 200; i++ {
		if err := kv.Set(ctx, "k", []byte("stale"), time.Minute); err != nil {
			t.Fatalf("Set error: %v", err)
		}
		clk.Advance(time.Minute)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = kv.Get(ctx, "k")
		}()
		go func() {
			defer wg.Done()
			_ = kv.Set(ctx, "k", []byte("fresh"), time.Hour)
		}()
		wg.Wait()

		data, err := kv.Get(ctx, "k")
		if err != nil {
			t.Fatalf("iteration %d: fresh write was evicted: %v", i, err)
		}
		if string(data) != "fresh" {
			t.Fatalf("iteration %d: unexpected value %q", i, data)
		}
	}
}

func TestDecodeRejectsUnknownSchemaVersion(t *testing.T) {
	if _, err := Decode([]byte(`{"v":99,"accountId":"a","token":"t"}`)); !errors.Is(err, ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
}
