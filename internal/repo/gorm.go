package repo

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevokedSession struct {
	JTI       string    `gorm:"column:jti;primaryKey;size:64"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time
}

func (RevokedSession) TableName() string { return "revoked_sessions" }

type GormRepo struct {
	DB *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	if err := r.DB.WithContext(ctx).AutoMigrate(&RevokedSession{}); err != nil {
		return fmt.Errorf("migrate revoked_sessions: %w", err)
	}
	return nil
}

// Revoke is idempotent: revoking twice keeps the later expiry.
func (r *GormRepo) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return ErrEmptyJTI
	}
	row := RevokedSession{JTI: jti, ExpiresAt: until.UTC()}
	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "jti"}},
		DoUpdates: clause.AssignmentColumns([]string{"expires_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *GormRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, ErrEmptyJTI
	}
	var count int64
	if err := r.DB.WithContext(ctx).Model(&RevokedSession{}).
		Where("jti = ?", jti).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("lookup revoked session: %w", err)
	}
	return count > 0, nil
}

// Purge deletes rows whose session token has expired.
func (r *GormRepo) Purge(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&RevokedSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge revoked sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
