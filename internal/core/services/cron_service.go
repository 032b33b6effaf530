package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"transport-billing/internal/adapters/persistence/repositories"
	"transport-billing/internal/pkg/clock"
	"transport-billing/internal/pkg/logger"
)

// TokenCleanupSchedule runs the refresh token cleanup daily at 03:00
const TokenCleanupSchedule = "0 3 * * *"

const cleanupTimeout = time.Minute

// CronService runs background maintenance jobs
type CronService struct {
	scheduler        *cron.Cron
	refreshTokenRepo repositories.RefreshTokenRepository
	clock            clock.Clock
	log              *zap.Logger
}

// NewCronService creates a new cron service
func NewCronService(refreshTokenRepo repositories.RefreshTokenRepository, clk clock.Clock, log *zap.Logger) *CronService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &CronService{
		scheduler:        cron.New(),
		refreshTokenRepo: refreshTokenRepo,
		clock:            clk,
		log:              logger.OrNop(log),
	}
}

// Start schedules the jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.scheduler.AddFunc(TokenCleanupSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if _, err := s.CleanupExpiredTokens(ctx); err != nil {
			s.log.Error("refresh token cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule token cleanup: %w", err)
	}

	s.scheduler.Start()
	s.log.Info("cron scheduler started", zap.String("token_cleanup", TokenCleanupSchedule))
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.scheduler.Stop().Done()
	s.log.Info("cron scheduler stopped")
}

// CleanupExpiredTokens deletes refresh tokens that have expired
func (s *CronService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	deleted, err := s.refreshTokenRepo.DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, storageError("delete expired refresh tokens", err)
	}
	s.log.Info("expired refresh tokens deleted", zap.Int64("count", deleted))
	return deleted, nil
}
