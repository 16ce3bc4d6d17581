package repository

import (
	"context"
	"time"

	"taskhub/internal/domain"
)

// VerificationTokenRepository guarda los registros de tokens de un solo uso.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token domain.VerificationToken) error
	GetByUserAndToken(ctx context.Context, userID, token string) (domain.VerificationToken, error)
	GetByUser(ctx context.Context, userID string) (domain.VerificationToken, error)
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type PgVerificationTokenRepository struct {
	db Querier
}

func NewPgVerificationTokenRepository(db Querier) *PgVerificationTokenRepository {
	return &PgVerificationTokenRepository{db: db}
}

// Create devuelve ErrConflict si el usuario ya tiene un registro.
func (r *PgVerificationTokenRepository) Create(ctx context.Context, token domain.VerificationToken) error {
	const query = `
		INSERT INTO verification_tokens (id, user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.Token,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return translateError(err)
}

func (r *PgVerificationTokenRepository) GetByUserAndToken(ctx context.Context, userID, token string) (domain.VerificationToken, error) {
	const query = `
		SELECT id, user_id, token, expires_at, created_at
		FROM verification_tokens
		WHERE user_id = $1 AND token = $2
	`
	return r.scanOne(ctx, query, userID, token)
}

func (r *PgVerificationTokenRepository) GetByUser(ctx context.Context, userID string) (domain.VerificationToken, error) {
	const query = `
		SELECT id, user_id, token, expires_at, created_at
		FROM verification_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOne(ctx, query, userID)
}

// DeleteByID no falla si el registro ya no existe.
func (r *PgVerificationTokenRepository) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM verification_tokens WHERE id = $1`, id)
	return translateError(err)
}

func (r *PgVerificationTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, translateError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgVerificationTokenRepository) scanOne(ctx context.Context, query string, args ...any) (domain.VerificationToken, error) {
	var t domain.VerificationToken
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		return domain.VerificationToken{}, translateError(err)
	}
	return t, nil
}
