package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/domain"
)

func TestTokenSweeper_Sweep(t *testing.T) {
	clock := newTestClock()
	tokens := newMockTokenRepo()
	tokens.set(domain.VerificationToken{ID: "old", UserID: "u1", ExpiresAt: clock.Now().Add(-time.Minute)})
	tokens.set(domain.VerificationToken{ID: "live", UserID: "u2", ExpiresAt: clock.Now().Add(time.Minute)})

	sweeper := NewTokenSweeper(zap.NewNop(), tokens, time.Minute)
	sweeper.now = clock.Now

	n, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 || tokens.count() != 1 {
		t.Fatalf("expected one record swept, got n=%d remaining=%d", n, tokens.count())
	}
	if _, err := tokens.GetByUser(context.Background(), "u2"); err != nil {
		t.Fatalf("expected live record to remain")
	}
}

func TestTokenSweeper_RunStopsOnCancel(t *testing.T) {
	sweeper := NewTokenSweeper(nil, newMockTokenRepo(), 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after cancel")
	}
}

func TestTokenSweeper_DisabledInterval(t *testing.T) {
	sweeper := NewTokenSweeper(nil, newMockTokenRepo(), 0)

	done := make(chan struct{})
	go func() {
		sweeper.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return immediately when disabled")
	}
}
