package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront/internal/auth"
	"github.com/spec-kit/storefront/internal/config"
	"github.com/spec-kit/storefront/internal/domain"
	"github.com/spec-kit/storefront/internal/events"
	"github.com/spec-kit/storefront/internal/repository"
	apperrors "github.com/spec-kit/storefront/pkg/util/errorutil"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgEmailTaken         = "User with this email already exists"
	msgWeakPassword       = "Password does not meet requirements"
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=CUSTOMER SELLER ADMIN"`
	Mobile   string `json:"mobile" validate:"omitempty,e164"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	RemoteIP string `json:"-"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users            repository.UserRepository
	tokenMgr         *auth.TokenManager
	passwords        *auth.PasswordHasher
	dispatcher       events.Dispatcher
	logger           *zap.Logger
	allowAdminSignup bool
	dummyHash        string
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAuthService builds the service. A missing signing secret is returned as
// auth.ErrMissingSecret.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) (*AuthService, error) {
	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return nil, err
	}

	passwords := auth.NewPasswordHasher(cfg.BcryptCost)
	dummy, err := passwords.Hash("storefront-timing-equalizer")
	if err != nil {
		return nil, err
	}

	if deps.Dispatcher == nil {
		deps.Dispatcher = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &AuthService{
		users:            deps.UserRepo,
		tokenMgr:         tokens,
		passwords:        passwords,
		dispatcher:       deps.Dispatcher,
		logger:           deps.Logger,
		allowAdminSignup: cfg.AllowAdminSignup,
		dummyHash:        dummy,
	}, nil
}

// Register creates a new account and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = domain.NormalizeEmail(in.Email)
	if in.Role != "" {
		role, _ := domain.ParseRole(in.Role)
		in.Role = string(role)
	}
	in.Mobile = strings.TrimSpace(in.Mobile)

	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if violations := auth.ValidatePasswordStrength(in.Password); len(violations) > 0 {
		return nil, apperrors.NewValidationError(msgWeakPassword, violations)
	}

	role := domain.RoleCustomer
	if in.Role != "" {
		role = domain.Role(in.Role)
	}
	if role == domain.RoleAdmin && !s.allowAdminSignup {
		return nil, apperrors.NewValidationError("Validation failed", []FieldError{{
			Field:   "role",
			Rule:    "oneof",
			Message: "role must be one of: CUSTOMER SELLER",
		}})
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, apperrors.NewConflict(msgEmailTaken)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if in.Mobile != "" {
		user.Mobile = &in.Mobile
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict(msgEmailTaken)
		}
		return nil, apperrors.NewInternalError(err)
	}

	result, err := s.signIn(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventUserRegistered, user.ID, events.UserRegisteredPayload{
		Email: user.Email,
		Role:  user.Role,
	}))
	return result, nil
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInternalError(err)
		}
		s.passwords.Compare(in.Password, s.dummyHash)
		s.loginFailed(ctx, "", in)
		return nil, apperrors.NewUnauthorized(msgInvalidCredentials)
	}

	if !s.passwords.Compare(in.Password, user.PasswordHash) {
		s.loginFailed(ctx, user.ID, in)
		return nil, apperrors.NewUnauthorized(msgInvalidCredentials)
	}

	result, err := s.signIn(user)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.EventUserLoggedIn, user.ID, events.LoginPayload{
		Email:    user.Email,
		RemoteIP: in.RemoteIP,
	}))
	return result, nil
}

// Verify re-checks a token against the user store.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.User, error) {
	claims, ok := s.tokenMgr.Verify(token)
	if !ok {
		return nil, apperrors.NewUnauthorized("Invalid token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("User not found")
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// Logout is a no-op: tokens are stateless and the client discards its copy.
func (s *AuthService) Logout(_ context.Context) error {
	return nil
}

// SeedAdmin creates an administrator if no account uses email.
func (s *AuthService) SeedAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" {
		return nil
	}
	email := domain.NormalizeEmail(cfg.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.logger.Debug("admin account present", zap.String("email", email))
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if violations := auth.ValidatePasswordStrength(cfg.Password); len(violations) > 0 {
		return apperrors.NewValidationError("ADMIN_PASSWORD does not meet requirements", violations)
	}

	hash, err := s.passwords.Hash(cfg.Password)
	if err != nil {
		return err
	}
	admin := &domain.User{
		Name:          cfg.Name,
		Email:         email,
		PasswordHash:  hash,
		Role:          domain.RoleAdmin,
		EmailVerified: true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil
		}
		return err
	}

	s.logger.Info("admin account created", zap.String("user_id", admin.ID), zap.String("email", email))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) signIn(user *domain.User) (*AuthResult, error) {
	token, exp, err := s.tokenMgr.Issue(auth.ClaimsFor(user))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID string, in LoginInput) {
	s.publish(ctx, events.New(events.EventLoginFailed, userID, events.LoginPayload{
		Email:    in.Email,
		RemoteIP: in.RemoteIP,
	}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
