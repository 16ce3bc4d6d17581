package service

import (
	"errors"
	"fmt"
)

// Rechazos de negocio: el handler responde 4xx con un mensaje para el usuario.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrEmailTypo           = errors.New("email looks like a typo")
	ErrEmailDenied         = errors.New("email denied by abuse gate")
	ErrUserExists          = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrVerificationPending = errors.New("verification email already pending")
	ErrVerificationResent  = errors.New("verification email resent")
	ErrTokenExpired        = errors.New("token expired")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrResetInProgress     = errors.New("password reset already in progress")
	ErrPasswordMismatch    = errors.New("passwords do not match")
)

var (
	// ErrUnauthorized cubre firma, proposito o registro invalidos sin distinguirlos.
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailSendFailure = errors.New("email send failed")
)

// TypoError lleva la direccion sugerida. errors.Is(err, ErrEmailTypo) es true.
type TypoError struct {
	Suggestion string
}

func (e *TypoError) Error() string {
	return fmt.Sprintf("did you mean %s?", e.Suggestion)
}

func (e *TypoError) Unwrap() error {
	return ErrEmailTypo
}
