package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"homesync/internal/models"
	"homesync/internal/repositories"
)

// AuthResult is returned by Register, Verify and Login.
type AuthResult struct {
	UserID   string
	Token    string
	Delivery DeliveryOutcome
}

// AuthService drives an account from registered to verified to authenticated.
type AuthService interface {
	Register(ctx context.Context, email, mobile, password string) (*AuthResult, error)
	Verify(ctx context.Context, email, code string) (*AuthResult, error)
	ResendCode(ctx context.Context, email string) (DeliveryOutcome, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Logout revokes token when a denylist is configured; otherwise logout is purely client side.
	Logout(ctx context.Context, token string)
}

// CodeGenerator produces a verification code.
type CodeGenerator func() (string, error)

// Deliverer sends a code to an address under the delivery policy.
type Deliverer interface {
	Deliver(ctx context.Context, userID, address, code string) DeliveryOutcome
}

type authService struct {
	users    repositories.UserRepository
	codes    repositories.UserVerificationRepository
	generate CodeGenerator
	delivery Deliverer
	hasher   *PasswordHasher
	tokens   *TokenService
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewAuthService(
	users repositories.UserRepository,
	codes repositories.UserVerificationRepository,
	generate CodeGenerator,
	delivery Deliverer,
	hasher *PasswordHasher,
	tokens *TokenService,
	logger *slog.Logger,
) AuthService {
	return &authService{
		users:    users,
		codes:    codes,
		generate: generate,
		delivery: delivery,
		hasher:   hasher,
		tokens:   tokens,
		logger:   logger.With("component", "auth"),
		tracer:   otel.Tracer("homesync/internal/services"),
	}
}

func (s *authService) Register(ctx context.Context, email, mobile, password string) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Register")
	defer span.End()

	email = strings.TrimSpace(email)
	mobile = strings.TrimSpace(mobile)
	if (email == "" && mobile == "") || password == "" {
		return nil, newAuthError(ErrValidation, "Email/mobile and password are required.")
	}

	existing, err := s.users.GetByEmailOrMobile(ctx, email, mobile)
	if err != nil {
		return nil, s.unexpected(ctx, span, "register: lookup", err)
	}
	if existing != nil {
		return nil, ErrUserExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.unexpected(ctx, span, "register: hash password", err)
	}

	// the pre-check above races with concurrent registrations; the unique constraint decides
	userID, err := s.users.Create(ctx, email, mobile, hash)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, s.unexpected(ctx, span, "register: create user", err)
	}
	span.SetAttributes(attribute.String("user.id", userID))

	typ := models.VerificationTypeEmail
	if email == "" {
		typ = models.VerificationTypeMobile
	}
	code, err := s.issueCode(ctx, userID, typ)
	if err != nil {
		return nil, s.unexpected(ctx, span, "register: store code", err)
	}

	outcome := DeliverySkipped
	if email != "" {
		outcome = s.delivery.Deliver(ctx, userID, email, code)
	}

	token, err := s.tokens.Issue(userID)
	if err != nil {
		return nil, s.unexpected(ctx, span, "register: issue token", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", userID, "delivery", outcome.String())
	return &AuthResult{UserID: userID, Token: token, Delivery: outcome}, nil
}

func (s *authService) Verify(ctx context.Context, email, code string) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Verify")
	defer span.End()

	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, newAuthError(ErrValidation, "Email and code are required.")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.unexpected(ctx, span, "verify: lookup", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	v, err := s.codes.FindActive(ctx, user.ID, code)
	if err != nil {
		return nil, s.unexpected(ctx, span, "verify: find code", err)
	}
	if v == nil {
		s.logger.InfoContext(ctx, "verification code rejected", "user_id", user.ID)
		return nil, ErrCodeRejected
	}

	if err := s.codes.MarkUsed(ctx, v.ID); err != nil {
		if errors.Is(err, repositories.ErrAlreadyUsed) {
			s.logger.InfoContext(ctx, "verification code already consumed", "user_id", user.ID)
			return nil, ErrCodeRejected
		}
		return nil, s.unexpected(ctx, span, "verify: mark code used", err)
	}
	if err := s.users.MarkVerified(ctx, user.ID, models.EmailVerification); err != nil {
		return nil, s.unexpected(ctx, span, "verify: mark user verified", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.unexpected(ctx, span, "verify: issue token", err)
	}
	s.logger.InfoContext(ctx, "email verified", "user_id", user.ID)
	return &AuthResult{UserID: user.ID, Token: token}, nil
}

// ResendCode issues an additional code; codes issued earlier stay valid until used or expired.
// Already verified accounts are not refused.
func (s *authService) ResendCode(ctx context.Context, email string) (DeliveryOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "auth.ResendCode")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" {
		return DeliverySkipped, newAuthError(ErrValidation, "Email is required.")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return DeliverySkipped, s.unexpected(ctx, span, "resend: lookup", err)
	}
	if user == nil {
		return DeliverySkipped, ErrUserNotFound
	}

	code, err := s.issueCode(ctx, user.ID, models.VerificationTypeEmail)
	if err != nil {
		return DeliverySkipped, s.unexpected(ctx, span, "resend: store code", err)
	}
	outcome := s.delivery.Deliver(ctx, user.ID, email, code)
	s.logger.InfoContext(ctx, "verification code reissued", "user_id", user.ID, "delivery", outcome.String())
	return outcome, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer span.End()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, newAuthError(ErrValidation, "Email and password are required.")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.unexpected(ctx, span, "login: lookup", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.LoginEligible() {
		return nil, ErrEmailNotVerified
	}
	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		s.logger.InfoContext(ctx, "login rejected", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.unexpected(ctx, span, "login: issue token", err)
	}
	return &AuthResult{UserID: user.ID, Token: token}, nil
}

func (s *authService) Logout(ctx context.Context, token string) {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.WarnContext(ctx, "token revoke failed", "err", err)
	}
}

func (s *authService) issueCode(ctx context.Context, userID string, typ models.VerificationType) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", err
	}
	if _, err := s.codes.Store(ctx, userID, typ, code); err != nil {
		return "", err
	}
	return code, nil
}

// unexpected logs a collaborator failure and hides it behind ErrUnexpected.
func (s *authService) unexpected(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.logger.ErrorContext(ctx, "auth workflow failed", "op", op, "err", err)
	return errInternal
}
