package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"transport-billing/internal/adapters/persistence/models"
)

type refreshTokenRepository struct {
	db *gorm.DB
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetByTokenHash finds a live (not revoked) token. Rotated tokens are not found.
func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	if err := r.live(ctx).Where("token_hash = ?", tokenHash).First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, id uint, at time.Time) error {
	return r.revoke(r.live(ctx).Where("id = ?", id), at)
}

func (r *refreshTokenRepository) RevokeByTokenHash(ctx context.Context, tokenHash string, at time.Time) error {
	return r.revoke(r.live(ctx).Where("token_hash = ?", tokenHash), at)
}

// RevokeAllByUserID signs a user out of every device
func (r *refreshTokenRepository) RevokeAllByUserID(ctx context.Context, userID uint, at time.Time) error {
	return r.revoke(r.live(ctx).Where("user_id = ?", userID), at)
}

// DeleteExpired removes tokens, revoked or not, that expired before the given time
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

func (r *refreshTokenRepository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.RefreshToken{}).Where("revoked_at IS NULL")
}

func (r *refreshTokenRepository) revoke(query *gorm.DB, at time.Time) error {
	return query.Update("revoked_at", at).Error
}
