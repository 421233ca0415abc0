package payments

import "time"

// Status transitions are monotonic: pending -> completed or pending -> failed.
// Both terminal states are absorbing.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Payment struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	CourseID int64 `gorm:"not null;index:ix_payments_course_id"`

	Amount float64 `gorm:"type:decimal(10,2);not null"`
	Status string  `gorm:"type:varchar(20);not null;default:pending"`

	PaymentMethod *string `gorm:"type:varchar(50)"`
	TransactionID *string `gorm:"type:varchar(100)"`

	CreatedAt   time.Time  `gorm:"type:datetime(3);not null"`
	CompletedAt *time.Time `gorm:"type:datetime(3)"`
}

func (Payment) TableName() string { return "payments" }

func (p Payment) Terminal() bool {
	return p.Status == StatusCompleted || p.Status == StatusFailed
}
