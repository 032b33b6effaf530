package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transport-billing/internal/adapters/persistence/models"
	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/config"
	"transport-billing/internal/core/domain"
	"transport-billing/internal/pkg/clock"
	"transport-billing/internal/pkg/jwt"
	"transport-billing/internal/pkg/logger"
	"transport-billing/internal/pkg/password"
	"transport-billing/internal/pkg/validation"
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	validator        *validation.Validator
	cfg              *config.Config
	clock            clock.Clock
	log              *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	validator *validation.Validator,
	cfg *config.Config,
	clk clock.Clock,
	log *zap.Logger,
) *AuthService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		validator:        validator,
		cfg:              cfg,
		clock:            clk,
		log:              logger.OrNop(log),
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Name         string          `json:"name" validate:"required,max=100"`
	MobileNumber string          `json:"mobile_number" validate:"required,numeric,min=10,max=15"`
	Password     string          `json:"password" validate:"required,min=8,max=72"`
	Role         string          `json:"role" validate:"required,oneof=admin staff"`
	Salary       decimal.Decimal `json:"salary" validate:"min=0"`
	License      string          `json:"license" validate:"omitempty,max=50"`
}

// LoginInput represents login input
type LoginInput struct {
	MobileNumber string `json:"mobile_number" validate:"required"`
	Password     string `json:"password" validate:"required"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// Register creates an operator account and signs it in
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.MobileNumber = strings.TrimSpace(input.MobileNumber)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	input.License = strings.TrimSpace(input.License)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.ExistsByMobileNumber(ctx, input.MobileNumber)
	if err != nil {
		return nil, storageError("check mobile number", err)
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         input.Name,
		MobileNumber: input.MobileNumber,
		Password:     hashedPassword,
		Role:         input.Role,
		Salary:       input.Salary.Round(2),
		License:      input.License,
		IsActive:     true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, storageError("create user", err)
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return resp, nil
}

// Login authenticates an operator by mobile number and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	input.MobileNumber = strings.TrimSpace(input.MobileNumber)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByMobileNumber(ctx, input.MobileNumber)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storageError("get user", err)
	}

	if !password.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	s.upgradeHash(ctx, user, input.Password)

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.Uint("user_id", user.ID))
	return resp, nil
}

// RefreshToken rotates a refresh token: the presented token is revoked and
// a new pair is issued.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}

	// revoked tokens are not returned, so a replayed token is reported as revoked
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrTokenRevoked
		}
		return nil, storageError("get refresh token", err)
	}

	now := s.clock.Now()
	if storedToken.IsExpired(now) {
		return nil, domain.ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageError("get user", err)
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID, now); err != nil {
		return nil, storageError("revoke refresh token", err)
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Debug("refresh token rotated", zap.Uint("user_id", user.ID))
	return resp, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken), s.clock.Now()); err != nil {
		return storageError("revoke refresh token", err)
	}
	return nil
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID, s.clock.Now()); err != nil {
		return storageError("revoke refresh tokens", err)
	}

	s.log.Info("all sessions revoked", zap.Uint("user_id", userID))
	return nil
}

// Me returns the profile of the principal
func (s *AuthService) Me(ctx context.Context, p domain.Principal) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, p.ID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageError("get user", err)
	}
	return user.ToResponse(), nil
}

// ResolvePrincipal validates an access token and loads the acting user.
// The role and name are read from the database so a demoted or
// deactivated account loses access before its token expires.
func (s *AuthService) ResolvePrincipal(ctx context.Context, token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}

	claims, err := jwt.ValidateAccessToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Principal{}, fmt.Errorf("%w: user %d not found", domain.ErrUnauthenticated, claims.UserID)
		}
		return domain.Principal{}, storageError("get user", err)
	}
	if !user.IsActive {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, domain.ErrUserInactive)
	}

	u, err := user.ToDomain()
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	return u.Principal(), nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.storeRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, storageError("store refresh token", err)
	}
	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(
		user.ID,
		user.Name,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.AccessTokenMins,
	)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// storeRefreshToken stores the hash of a refresh token
func (s *AuthService) storeRefreshToken(ctx context.Context, userID uint, refreshToken string) error {
	return s.refreshTokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	})
}

// upgradeHash re-hashes a password stored with an outdated bcrypt cost.
// Failure only costs the upgrade, not the login.
func (s *AuthService) upgradeHash(ctx context.Context, user *models.User, plain string) {
	if !password.NeedsRehash(user.Password) {
		return
	}
	hash, err := password.Hash(plain)
	if err == nil {
		user.Password = hash
		err = s.userRepo.Update(ctx, user)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}
