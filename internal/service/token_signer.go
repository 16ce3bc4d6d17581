package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskhub/internal/domain"
)

// TokenSigner emite y valida los tokens firmados de todos los flujos.
type TokenSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type TokenClaims struct {
	UserID  string              `json:"userId"`
	Purpose domain.TokenPurpose `json:"purpose"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

func NewTokenSigner(secret, issuer string) *TokenSigner {
	if strings.TrimSpace(issuer) == "" {
		issuer = "taskhub"
	}
	return &TokenSigner{
		secret: []byte(secret),
		issuer: issuer,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Sign devuelve el token y el instante exacto en que vence.
func (s *TokenSigner) Sign(userID string, purpose domain.TokenPurpose, ttl time.Duration) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrJWTInvalid
	}
	if strings.TrimSpace(userID) == "" || purpose == "" || ttl <= 0 {
		return "", time.Time{}, ErrJWTInvalid
	}
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := TokenClaims{
		UserID:  userID,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify valida firma, emisor y vencimiento.
func (s *TokenSigner) Verify(tokenString string) (TokenClaims, error) {
	return s.parseToken(tokenString, jwt.WithTimeFunc(s.now))
}

// ClaimsIgnoringExpiry valida firma y emisor pero acepta tokens vencidos.
func (s *TokenSigner) ClaimsIgnoringExpiry(tokenString string) (TokenClaims, error) {
	return s.parseToken(tokenString, jwt.WithoutClaimsValidation())
}

// Purpose lee el proposito de un token con firma valida aunque ya haya vencido.
func (s *TokenSigner) Purpose(tokenString string) (domain.TokenPurpose, error) {
	claims, err := s.ClaimsIgnoringExpiry(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Purpose, nil
}

func (s *TokenSigner) parseToken(tokenString string, opts ...jwt.ParserOption) (TokenClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return TokenClaims{}, ErrJWTInvalid
	}
	opts = append([]jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}, opts...)

	var claims TokenClaims
	_, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrJWTExpired
		}
		return TokenClaims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return TokenClaims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *TokenSigner) isValidClaims(claims TokenClaims) bool {
	if strings.TrimSpace(claims.UserID) == "" || claims.Purpose == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
