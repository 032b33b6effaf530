package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transport-billing/internal/adapters/persistence/models"
	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/core/domain"
	"transport-billing/internal/pkg/logger"
	"transport-billing/internal/pkg/pagination"
	"transport-billing/internal/pkg/password"
	"transport-billing/internal/pkg/validation"
)

// UserService handles operator account management
type UserService struct {
	userRepo  repositories.UserRepository
	validator *validation.Validator
	log       *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repositories.UserRepository, validator *validation.Validator, log *zap.Logger) *UserService {
	return &UserService{
		userRepo:  userRepo,
		validator: validator,
		log:       logger.OrNop(log),
	}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Page   int
	Limit  int
	Search string
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Meta  *pagination.Meta       `json:"meta"`
}

// UpdateUserByAdminInput represents update user input (for admin)
type UpdateUserByAdminInput struct {
	Name     *string          `json:"name" validate:"omitnil,min=1,max=100"`
	Role     *string          `json:"role" validate:"omitnil,oneof=admin staff"`
	Salary   *decimal.Decimal `json:"salary" validate:"omitnil,min=0"`
	License  *string          `json:"license" validate:"omitnil,max=50"`
	IsActive *bool            `json:"is_active"`
}

// UpdateProfileInput represents update profile input (for self)
type UpdateProfileInput struct {
	Name    *string `json:"name" validate:"omitnil,min=1,max=100"`
	License *string `json:"license" validate:"omitnil,max=50"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// ListUsers lists operators page by page, optionally matching name or mobile number
func (s *UserService) ListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	params := pagination.New(input.Page, input.Limit)

	users, total, err := s.userRepo.List(ctx, input.Search, params.Offset, params.Limit)
	if err != nil {
		return nil, storageError("list users", err)
	}

	out := make([]*models.UserResponse, len(users))
	for i, user := range users {
		out[i] = user.ToResponse()
	}

	return &ListUsersOutput{Users: out, Meta: pagination.GetMeta(params, total)}, nil
}

// GetUserByID gets a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateUserByAdmin updates a user by admin. Admins cannot change their own role.
func (s *UserService) UpdateUserByAdmin(ctx context.Context, id uint, adminID uint, input *UpdateUserByAdminInput) (*models.UserResponse, error) {
	trimAll(input.Name, input.License)
	if input.Role != nil {
		*input.Role = strings.ToLower(strings.TrimSpace(*input.Role))
	}
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if id == adminID && input.Role != nil && *input.Role != user.Role {
		return nil, domain.ErrCannotChangeOwnRole
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.Salary != nil {
		user.Salary = input.Salary.Round(2)
	}
	if input.License != nil {
		user.License = *input.License
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageError("update user", err)
	}

	s.log.Info("user updated", zap.Uint("user_id", id), zap.Uint("admin_id", adminID))
	return user.ToResponse(), nil
}

// DeleteUser soft deletes a user. Bills keep the staff name they were issued under.
func (s *UserService) DeleteUser(ctx context.Context, id uint, adminID uint) error {
	if id == adminID {
		return domain.ErrCannotDeleteSelf
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		if repositories.IsNotFound(err) {
			return domain.ErrUserNotFound
		}
		return storageError("delete user", err)
	}

	s.log.Info("user deleted", zap.Uint("user_id", id), zap.Uint("admin_id", adminID))
	return nil
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserResponse, error) {
	return s.GetUserByID(ctx, userID)
}

// UpdateProfile updates own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.UserResponse, error) {
	trimAll(input.Name, input.License)
	if err := s.validator.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.License != nil {
		user.License = *input.License
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, storageError("update profile", err)
	}
	return user.ToResponse(), nil
}

// ChangePassword changes user's password
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	if err := s.validator.Struct(input); err != nil {
		return err
	}

	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}

	if !password.Verify(input.OldPassword, user.Password) {
		return domain.ErrOldPasswordWrong
	}

	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return storageError("change password", err)
	}
	return nil
}

func (s *UserService) get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageError("get user", err)
	}
	return user, nil
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
