package gateway

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

const (
	GatewayName = "redsys"

	defaultEndpointTest       = "https://sis-t.redsys.es:25443/sis/realizarPago"
	defaultEndpointProduction = "https://sis.redsys.es/sis/realizarPago"
)

// Config is the merchant-side gateway configuration. Exactly one row is
// active at a time; admin updates deactivate the siblings.
type Config struct {
	ID          uint   `gorm:"primaryKey"`
	GatewayName string `gorm:"type:varchar(50);not null;default:redsys"`

	MerchantCode string `gorm:"type:varchar(9)"`
	Terminal     string `gorm:"type:varchar(3);not null;default:001"`
	SecretKey    string `gorm:"type:varchar(500)"` // base64 shared secret
	Environment  string `gorm:"type:varchar(10);not null;default:test"`

	SignatureVersion string `gorm:"type:varchar(20);not null;default:HMAC_SHA256_V1"`

	EndpointTest       string `gorm:"type:varchar(200)"`
	EndpointProduction string `gorm:"type:varchar(200)"`

	// Public base URL for callback resolution. When empty, the callbacks are
	// derived from the incoming request's origin.
	PublicBaseURL string `gorm:"type:varchar(200)"`

	IsActive  bool      `gorm:"not null;default:true;index:ix_gateway_configs_active"`
	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Config) TableName() string { return "gateway_configs" }

func (c Config) Env() Environment {
	if c.Environment == string(EnvProduction) {
		return EnvProduction
	}
	return EnvTest
}

func (c Config) Alg() SignatureAlg {
	if c.SignatureVersion == string(AlgHMACSHA512) {
		return AlgHMACSHA512
	}
	return AlgHMACSHA256
}

func (c Config) EndpointURL() string {
	if c.Env() == EnvProduction {
		if c.EndpointProduction != "" {
			return c.EndpointProduction
		}
		return defaultEndpointProduction
	}
	if c.EndpointTest != "" {
		return c.EndpointTest
	}
	return defaultEndpointTest
}

// Complete reports whether the config carries the credentials signing needs.
func (c Config) Complete() bool {
	return strings.TrimSpace(c.MerchantCode) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// Notification is the audit row written for every inbound gateway
// notification. It records what arrived and how reconciliation ended; the
// idempotence guarantee itself lives in the payment row's conditional update,
// not here.
type Notification struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	OrderToken string `gorm:"type:varchar(12);index:ix_gateway_notifications_order"`
	PaymentID  *int64 `gorm:"index:ix_gateway_notifications_payment"`

	Outcome    string         `gorm:"type:varchar(32);not null"`
	ParamsJSON datatypes.JSON `gorm:"type:json"`
	Signature  string         `gorm:"type:varchar(128)"`

	ReceivedAt   time.Time  `gorm:"type:datetime(3);not null"`
	ProcessedAt  *time.Time `gorm:"type:datetime(3)"`
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (Notification) TableName() string { return "gateway_notifications" }

// Reconciliation outcomes recorded on Notification rows.
const (
	OutcomeCompleted         = "completed"
	OutcomeFailed            = "failed"
	OutcomeAlreadyReconciled = "already_reconciled"
	OutcomeRejected          = "rejected"
)
