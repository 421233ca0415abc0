package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConfigRepo struct{ db *gorm.DB }

func NewConfigRepo(db *gorm.DB) *ConfigRepo { return &ConfigRepo{db: db} }

// GetActive returns a consistent snapshot of the active configuration.
// Callers read it once at the start of an operation and never re-read fields
// mid-flight, so a concurrent admin update cannot race an in-flight
// sign/verify.
func (r *ConfigRepo) GetActive(ctx context.Context) (Config, error) {
	var cfg Config
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Config{}, ErrConfigIncomplete
	}
	if err != nil {
		return Config{}, fmt.Errorf("loading gateway config: %w", err)
	}
	return cfg, nil
}

type UpsertConfigInput struct {
	MerchantCode     string
	Terminal         string
	SecretKey        string
	Environment      string
	SignatureVersion string
	PublicBaseURL    string
}

// Upsert updates the redsys configuration row (creating it on first use) and
// deactivates every other row so exactly one stays active.
func (r *ConfigRepo) Upsert(ctx context.Context, in UpsertConfigInput) (Config, error) {
	var cfg Config

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Config{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		now := time.Now()
		e := tx.First(&cfg, "gateway_name = ?", GatewayName).Error
		if errors.Is(e, gorm.ErrRecordNotFound) {
			cfg = Config{
				GatewayName: GatewayName,
				Terminal:    "001",
				Environment: string(EnvTest),
				CreatedAt:   now,
			}
		} else if e != nil {
			return e
		}

		if in.MerchantCode != "" {
			cfg.MerchantCode = in.MerchantCode
		}
		if in.Terminal != "" {
			cfg.Terminal = in.Terminal
		}
		if in.SecretKey != "" {
			cfg.SecretKey = in.SecretKey
		}
		if in.Environment != "" {
			cfg.Environment = in.Environment
		}
		if in.SignatureVersion != "" {
			cfg.SignatureVersion = in.SignatureVersion
		}
		if in.PublicBaseURL != "" {
			cfg.PublicBaseURL = in.PublicBaseURL
		}
		cfg.SignatureVersion = string(cfg.Alg())
		cfg.IsActive = true
		cfg.UpdatedAt = now

		return tx.Save(&cfg).Error
	})
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type NotificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func (r *NotificationRepo) Record(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepo) ListByPayment(ctx context.Context, paymentID int64) ([]Notification, error) {
	var items []Notification
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("received_at ASC").
		Find(&items).Error
	return items, err
}
