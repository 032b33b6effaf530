package repositories

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"transport-billing/internal/adapters/persistence/models"
)

// userRepository implements UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByMobileNumber gets a user by the mobile number used to log in
func (r *userRepository) GetByMobileNumber(ctx context.Context, mobile string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("mobile_number = ?", mobile).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update updates a user
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete soft deletes a user
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List lists users with pagination, optionally matching name or mobile number
func (r *userRepository) List(ctx context.Context, search string, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := r.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		pattern := "%" + EscapeLike(strings.ToLower(search)) + "%"
		query = query.Where("LOWER(name) LIKE ? ESCAPE '!' OR mobile_number LIKE ? ESCAPE '!'", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ExistsByMobileNumber checks if a mobile number is registered
func (r *userRepository) ExistsByMobileNumber(ctx context.Context, mobile string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("mobile_number = ?", mobile).Count(&count).Error
	return count > 0, err
}
