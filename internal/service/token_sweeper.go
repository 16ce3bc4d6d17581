package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskhub/internal/repository"
)

// TokenSweeper borra periodicamente los registros de tokens vencidos.
// Verify y reset rechazan por vencimiento sin depender de esta limpieza.
type TokenSweeper struct {
	logger   *zap.Logger
	tokens   repository.VerificationTokenRepository
	interval time.Duration
	now      func() time.Time
}

func NewTokenSweeper(logger *zap.Logger, tokens repository.VerificationTokenRepository, interval time.Duration) *TokenSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSweeper{
		logger:   logger,
		tokens:   tokens,
		interval: interval,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run bloquea hasta que ctx se cancela. Un intervalo <= 0 lo desactiva.
func (s *TokenSweeper) Run(ctx context.Context) {
	if s.interval <= 0 || s.tokens == nil {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Sweep(ctx)
		}
	}
}

func (s *TokenSweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		s.logger.Warn("sweep expired tokens failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.logger.Info("swept expired tokens", zap.Int64("count", n))
	}
	return n, nil
}
