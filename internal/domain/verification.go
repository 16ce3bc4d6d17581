package domain

import "time"

// TokenPurpose restringe que flujo puede aceptar un token firmado.
type TokenPurpose string

const (
	PurposeEmailVerification TokenPurpose = "email-verification"
	PurposeResetPassword     TokenPurpose = "reset-password"
	PurposeLogin             TokenPurpose = "login"
)

// VerificationToken es el registro que hace revocable y de un solo uso a un
// token firmado. El proposito viaja dentro del token, no en el registro.
type VerificationToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reporta si el registro ya vencio en el instante now.
func (t VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
