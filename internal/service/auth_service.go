package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"taskhub/internal/domain"
	"taskhub/internal/email"
	"taskhub/internal/repository"
)

const (
	emailVerificationTTL = time.Hour
	resetPasswordTTL     = 15 * time.Minute
	loginTokenTTL        = 7 * 24 * time.Hour
	registrationWeight   = 1
)

// AuthServiceDeps agrupa los colaboradores de AuthService.
type AuthServiceDeps struct {
	Logger      *zap.Logger
	Users       repository.UserRepository
	Tokens      repository.VerificationTokenRepository
	Signer      *TokenSigner
	Hasher      PasswordHasher
	Sender      email.Sender
	TypoChecker EmailTypoChecker
	Gate        AbuseGate
	FrontendURL string
}

// AuthService coordina registro, login, verificacion de email y reseteo de contraseña.
type AuthService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	tokens      repository.VerificationTokenRepository
	signer      *TokenSigner
	hasher      PasswordHasher
	sender      email.Sender
	typos       EmailTypoChecker
	gate        AbuseGate
	frontendURL string
	now         func() time.Time
	dummyHash   string
}

func NewAuthService(deps AuthServiceDeps) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	typos := deps.TypoChecker
	if typos == nil {
		typos = NewDomainTypoChecker(nil, 0)
	}
	svc := &AuthService{
		logger:      logger,
		users:       deps.Users,
		tokens:      deps.Tokens,
		signer:      deps.Signer,
		hasher:      deps.Hasher,
		sender:      deps.Sender,
		typos:       typos,
		gate:        deps.Gate,
		frontendURL: deps.FrontendURL,
		now:         func() time.Time { return time.Now().UTC() },
	}
	// Hash de relleno para que un email inexistente cueste lo mismo que una contraseña erronea.
	if svc.hasher != nil {
		if h, err := svc.hasher.Hash("taskhub:unknown-user"); err == nil {
			svc.dummyHash = h
		}
	}
	return svc
}

type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	ClientIP     string
	// ConfirmEmail indica que el usuario ya vio la sugerencia y mantiene su direccion.
	ConfirmEmail bool
}

type ResetPasswordInput struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
}

type LoginResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *AuthService) configured() error {
	if s.users == nil || s.tokens == nil || s.signer == nil || s.hasher == nil || s.sender == nil {
		return errors.New("auth service not configured")
	}
	return nil
}

// Register crea un usuario sin verificar y le envia el enlace de verificacion.
// Si el envio falla el usuario y el registro del token quedan persistidos.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if err := s.configured(); err != nil {
		return domain.User{}, err
	}

	name := strings.TrimSpace(input.Name)
	emailAddr := normalizeEmail(input.Email)
	if name == "" || emailAddr == "" || input.Password == "" {
		return domain.User{}, ErrInvalidInput
	}

	if !input.ConfirmEmail {
		if suggestion, ok := s.typos.Suggest(emailAddr); ok {
			return domain.User{}, &TypoError{Suggestion: suggestion}
		}
	}

	if s.gate != nil {
		decision, err := s.gate.Protect(ctx, ProtectRequest{
			Identity: emailAddr,
			Weight:   registrationWeight,
			ClientIP: input.ClientIP,
		})
		switch {
		case err != nil:
			s.logger.Warn("abuse gate unavailable, allowing request", zap.Error(err))
		default:
			s.logger.Debug("abuse gate decision", zap.String("email", emailAddr), zap.Bool("denied", decision.IsDenied()))
			if decision.IsDenied() {
				return domain.User{}, ErrEmailDenied
			}
		}
	}

	if _, err := s.users.GetByEmail(ctx, emailAddr); err == nil {
		return domain.User{}, ErrUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}

	passwordHash, err := s.hashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        emailAddr,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.User{}, ErrUserExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	record, err := s.issueToken(ctx, user.ID, domain.PurposeEmailVerification, emailVerificationTTL)
	if err != nil {
		return domain.User{}, err
	}
	subject, body := email.VerificationMessage(s.frontendURL, record.Token)
	if err := s.send(ctx, user.Email, subject, body); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login devuelve un token de sesion para usuarios verificados. Para usuarios sin
// verificar devuelve ErrVerificationPending o, tras reenviar el correo, ErrVerificationResent.
func (s *AuthService) Login(ctx context.Context, emailAddr, password string) (LoginResult, error) {
	if err := s.configured(); err != nil {
		return LoginResult{}, err
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if s.dummyHash != "" {
				_ = s.hasher.Compare(s.dummyHash, password)
			}
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if !user.IsEmailVerified {
		return LoginResult{}, s.resendVerification(ctx, user)
	}

	token, _, err := s.signer.Sign(user.ID, domain.PurposeLogin, loginTokenTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign session token: %w", err)
	}

	now := s.now()
	user.LastLogin = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return LoginResult{}, fmt.Errorf("update last login: %w", err)
	}
	return LoginResult{Token: token, User: user}, nil
}

// resendVerification siempre termina en error: pendiente, reenviado o fallo.
func (s *AuthService) resendVerification(ctx context.Context, user domain.User) error {
	existing, err := s.tokens.GetByUser(ctx, user.ID)
	switch {
	case err == nil:
		if !existing.Expired(s.now()) {
			return ErrVerificationPending
		}
		if err := s.tokens.DeleteByID(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete expired token: %w", err)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("lookup verification token: %w", err)
	}

	record, err := s.issueToken(ctx, user.ID, domain.PurposeEmailVerification, emailVerificationTTL)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrVerificationPending
		}
		return err
	}
	subject, body := email.VerificationMessage(s.frontendURL, record.Token)
	if err := s.send(ctx, user.Email, subject, body); err != nil {
		return err
	}
	return ErrVerificationResent
}

// VerifyEmail consume un token de verificacion y marca el email como verificado.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if err := s.configured(); err != nil {
		return err
	}

	record, err := s.consumableRecord(ctx, token, domain.PurposeEmailVerification)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}

	user.IsEmailVerified = true
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if err := s.tokens.DeleteByID(ctx, record.ID); err != nil {
		return fmt.Errorf("delete verification token: %w", err)
	}
	return nil
}

// RequestPasswordReset envia un enlace de reseteo si no hay otro vigente.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	if err := s.configured(); err != nil {
		return err
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return ErrInvalidInput
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsEmailVerified {
		return ErrEmailNotVerified
	}

	existing, err := s.tokens.GetByUser(ctx, user.ID)
	switch {
	case err == nil:
		if !existing.Expired(s.now()) && s.hasPurpose(existing, domain.PurposeResetPassword) {
			return ErrResetInProgress
		}
		if err := s.tokens.DeleteByID(ctx, existing.ID); err != nil {
			return fmt.Errorf("delete stale token: %w", err)
		}
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("lookup reset token: %w", err)
	}

	record, err := s.issueToken(ctx, user.ID, domain.PurposeResetPassword, resetPasswordTTL)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrResetInProgress
		}
		return err
	}
	subject, body := email.ResetPasswordMessage(s.frontendURL, record.Token)
	return s.send(ctx, user.Email, subject, body)
}

// ResetPassword consume un token de reseteo y guarda el hash de la nueva contraseña.
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if err := s.configured(); err != nil {
		return err
	}

	record, err := s.consumableRecord(ctx, input.Token, domain.PurposeResetPassword)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if input.NewPassword != input.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if input.NewPassword == "" {
		return ErrInvalidInput
	}

	passwordHash, err := s.hashPassword(input.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.tokens.DeleteByID(ctx, record.ID); err != nil {
		return fmt.Errorf("delete reset token: %w", err)
	}
	return nil
}

// Profile devuelve el usuario dueño de una sesion.
func (s *AuthService) Profile(ctx context.Context, userID string) (domain.User, error) {
	if s.users == nil {
		return domain.User{}, errors.New("auth service not configured")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// consumableRecord valida el token firmado y su registro en este orden:
// firma, proposito, existencia del registro y vencimiento. Un token vencido
// solo se informa como vencido si su proposito y su registro son validos.
func (s *AuthService) consumableRecord(ctx context.Context, token string, purpose domain.TokenPurpose) (domain.VerificationToken, error) {
	token = strings.TrimSpace(token)
	claims, err := s.signer.Verify(token)
	jwtExpired := errors.Is(err, ErrJWTExpired)
	if jwtExpired {
		claims, err = s.signer.ClaimsIgnoringExpiry(token)
	}
	if err != nil {
		return domain.VerificationToken{}, ErrUnauthorized
	}
	if claims.Purpose != purpose {
		return domain.VerificationToken{}, ErrUnauthorized
	}

	record, err := s.tokens.GetByUserAndToken(ctx, claims.UserID, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.VerificationToken{}, ErrUnauthorized
		}
		return domain.VerificationToken{}, fmt.Errorf("lookup token record: %w", err)
	}
	if jwtExpired || record.Expired(s.now()) {
		return domain.VerificationToken{}, ErrTokenExpired
	}
	return record, nil
}

func (s *AuthService) issueToken(ctx context.Context, userID string, purpose domain.TokenPurpose, ttl time.Duration) (domain.VerificationToken, error) {
	signed, expiresAt, err := s.signer.Sign(userID, purpose, ttl)
	if err != nil {
		return domain.VerificationToken{}, fmt.Errorf("sign %s token: %w", purpose, err)
	}
	record := domain.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     signed,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.VerificationToken{}, err
		}
		return domain.VerificationToken{}, fmt.Errorf("store %s token: %w", purpose, err)
	}
	return record, nil
}

func (s *AuthService) hasPurpose(record domain.VerificationToken, purpose domain.TokenPurpose) bool {
	got, err := s.signer.Purpose(record.Token)
	return err == nil && got == purpose
}

func (s *AuthService) send(ctx context.Context, to, subject, body string) error {
	if err := s.sender.Send(ctx, to, subject, body); err != nil {
		s.logger.Warn("send email failed", zap.Error(err), zap.String("email", to), zap.String("subject", subject))
		return ErrEmailSendFailure
	}
	return nil
}

func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrInvalidInput
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// normalizeEmail solo recorta espacios: el email se compara tal como se guardo.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
