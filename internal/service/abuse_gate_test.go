package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisEvaler struct {
	lastScript string
	keys       []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.keys = append(m.keys, keys...)
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestMemoryAbuseGate(t *testing.T) {
	clock := newTestClock()
	gate := NewMemoryAbuseGate(10*time.Minute, 2).(*memoryAbuseGate)
	gate.now = clock.Now
	ctx := context.Background()

	t.Run("invalid identity denied", func(t *testing.T) {
		d, err := gate.Protect(ctx, ProtectRequest{Identity: "not an email"})
		if err != nil || !d.IsDenied() {
			t.Fatalf("expected denial, got %v (%v)", d, err)
		}
	})

	t.Run("allows within budget then denies", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			d, err := gate.Protect(ctx, ProtectRequest{Identity: "bob@gmail.com", Weight: 1})
			if err != nil || d.IsDenied() {
				t.Fatalf("attempt %d: expected allow, got %v (%v)", i+1, d, err)
			}
		}
		d, _ := gate.Protect(ctx, ProtectRequest{Identity: "bob@gmail.com", Weight: 1})
		if !d.IsDenied() {
			t.Fatalf("expected third attempt to be denied")
		}
		if d.(GateDecision).Reason != reasonRateLimited {
			t.Fatalf("unexpected reason %q", d.(GateDecision).Reason)
		}
	})

	t.Run("window slides", func(t *testing.T) {
		clock.Advance(11 * time.Minute)
		d, _ := gate.Protect(ctx, ProtectRequest{Identity: "bob@gmail.com", Weight: 1})
		if d.IsDenied() {
			t.Fatalf("expected allow after window")
		}
	})

	t.Run("weight counts", func(t *testing.T) {
		d, _ := gate.Protect(ctx, ProtectRequest{Identity: "heavy@gmail.com", Weight: 3})
		if !d.IsDenied() {
			t.Fatalf("expected heavy request to exceed budget")
		}
	})

	t.Run("ip budget shared across emails", func(t *testing.T) {
		for i, addr := range []string{"a@gmail.com", "b@gmail.com", "c@gmail.com", "d@gmail.com"} {
			d, _ := gate.Protect(ctx, ProtectRequest{Identity: addr, Weight: 1, ClientIP: "10.0.0.1"})
			if d.IsDenied() {
				t.Fatalf("attempt %d: expected allow", i+1)
			}
		}
		d, _ := gate.Protect(ctx, ProtectRequest{Identity: "e@gmail.com", Weight: 1, ClientIP: "10.0.0.1"})
		if !d.IsDenied() {
			t.Fatalf("expected ip budget to be exhausted")
		}
	})
}

func TestRedisAbuseGateProtect(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		if NewRedisAbuseGate(nil, time.Minute, 3) != nil {
			t.Fatalf("expected nil gate without client")
		}
	})

	t.Run("invalid identity denied without redis", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 1}
		g := &redisAbuseGate{client: mock, window: time.Minute, max: 3, prefix: "abuse:"}
		d, err := g.Protect(context.Background(), ProtectRequest{Identity: "   "})
		if err != nil || !d.IsDenied() {
			t.Fatalf("expected denial, got %v (%v)", d, err)
		}
		if len(mock.keys) != 0 {
			t.Fatalf("expected no redis calls")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		g := &redisAbuseGate{client: mock, window: 2 * time.Minute, max: 3, prefix: "abuse:"}
		d, err := g.Protect(context.Background(), ProtectRequest{Identity: "Bob@Gmail.com", Weight: 2, ClientIP: "10.0.0.1"})
		if err != nil || d.IsDenied() {
			t.Fatalf("expected allow, got %v (%v)", d, err)
		}
		if len(mock.keys) != 2 || mock.keys[0] != "abuse:email:bob@gmail.com" || mock.keys[1] != "abuse:ip:10.0.0.1" {
			t.Fatalf("unexpected keys: %+v", mock.keys)
		}
		if len(mock.lastArgs) != 2 || mock.lastArgs[0] != 2 || mock.lastArgs[1] != 120 {
			t.Fatalf("expected weight=2 ttl=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisAbuseGateScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		g := &redisAbuseGate{client: &mockRedisEvaler{result: 4}, window: time.Minute, max: 3, prefix: "abuse:"}
		d, err := g.Protect(context.Background(), ProtectRequest{Identity: "bob@gmail.com"})
		if err != nil || !d.IsDenied() {
			t.Fatalf("expected deny, got %v (%v)", d, err)
		}
	})

	t.Run("redis error returned", func(t *testing.T) {
		g := &redisAbuseGate{client: &mockRedisEvaler{err: errors.New("redis down")}, window: time.Minute, max: 3, prefix: "abuse:"}
		if _, err := g.Protect(context.Background(), ProtectRequest{Identity: "bob@gmail.com"}); err == nil {
			t.Fatalf("expected redis error to surface")
		}
	})
}

func TestMemoryAbuseGate_PrunesIdleKeys(t *testing.T) {
	clock := newTestClock()
	gate := NewMemoryAbuseGate(10*time.Minute, 2).(*memoryAbuseGate)
	gate.now = clock.Now
	ctx := context.Background()

	for _, addr := range []string{"a@gmail.com", "b@gmail.com", "c@gmail.com"} {
		if d, _ := gate.Protect(ctx, ProtectRequest{Identity: addr, ClientIP: "10.0.0.1"}); d.IsDenied() {
			t.Fatalf("expected allow for %s", addr)
		}
	}
	if len(gate.hits) != 4 {
		t.Fatalf("expected 3 email keys and 1 ip key, got %d", len(gate.hits))
	}

	clock.Advance(11 * time.Minute)
	if d, _ := gate.Protect(ctx, ProtectRequest{Identity: "d@gmail.com"}); d.IsDenied() {
		t.Fatalf("expected allow")
	}
	if len(gate.hits) != 1 {
		t.Fatalf("expected idle keys to be pruned, have %d", len(gate.hits))
	}
	if _, ok := gate.hits["email:d@gmail.com"]; !ok {
		t.Fatalf("expected only the fresh key to remain")
	}
}
