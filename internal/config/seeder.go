package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"transport-billing/internal/adapters/persistence/models"
	"transport-billing/internal/core/billing"
	"transport-billing/internal/core/domain"
	"transport-billing/internal/pkg/logger"
	"transport-billing/internal/pkg/password"
)

// Seeder handles database seeding
type Seeder struct {
	db   *gorm.DB
	seed SeedConfig
	log  *zap.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, seed SeedConfig, log *zap.Logger) *Seeder {
	return &Seeder{db: db, seed: seed, log: logger.OrNop(log)}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	if err := s.seedAdminUser(); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if err := s.seedBillSequence(); err != nil {
		return fmt.Errorf("seed bill sequence: %w", err)
	}
	s.log.Info("database seeding completed")
	return nil
}

// seedAdminUser creates the first admin from SEED_ADMIN_* when no admin exists
func (s *Seeder) seedAdminUser() error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if s.seed.AdminMobile == "" || s.seed.AdminPassword == "" {
		s.log.Warn("no admin account exists and SEED_ADMIN_MOBILE or SEED_ADMIN_PASSWORD is unset")
		return nil
	}
	if !password.ValidatePassword(s.seed.AdminPassword) {
		return errors.New("SEED_ADMIN_PASSWORD is shorter than 8 characters")
	}

	hashedPassword, err := password.Hash(s.seed.AdminPassword)
	if err != nil {
		return err
	}

	name := s.seed.AdminName
	if name == "" {
		name = "Administrator"
	}

	admin := &models.User{
		Name:         name,
		MobileNumber: s.seed.AdminMobile,
		Password:     hashedPassword,
		Role:         string(domain.RoleAdmin),
		IsActive:     true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return err
	}

	s.log.Info("admin user created", zap.Uint("user_id", admin.ID), zap.String("mobile_number", admin.MobileNumber))
	return nil
}

// seedBillSequence creates the numbering row so it continues after the
// highest bill number already stored, for example after an import.
func (s *Seeder) seedBillSequence() error {
	prefix := s.seed.BillPrefix
	if prefix == "" {
		prefix = billing.DefaultNumberPrefix
	}

	var numbers []string
	if err := s.db.Model(&models.Bill{}).Pluck("bill_number", &numbers).Error; err != nil {
		return err
	}

	var last int64
	for _, n := range numbers {
		seq, err := billing.ParseBillNumber(prefix, n)
		if err != nil {
			s.log.Warn("skipping bill number with foreign format", zap.String("bill_number", n))
			continue
		}
		last = max(last, seq)
	}

	seq := models.BillSequence{Name: billing.SequenceName, NextNumber: last + 1, UpdatedAt: time.Now()}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error
}
