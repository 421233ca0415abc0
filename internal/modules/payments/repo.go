package payments

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, courseID int64, amount float64) (Payment, error) {
	p := Payment{
		CourseID:  courseID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (Payment, bool, error) {
	var p Payment
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Payment{}, false, nil
	}
	if err != nil {
		return Payment{}, false, err
	}
	return p, true, nil
}

// SettleIfPending applies the pending -> status transition as a single
// conditional update. The status guard makes concurrent duplicate
// notifications safe: only one of two racing reconciliations observes
// pending, so exactly one row update is applied. Returns whether this call
// applied the transition.
func (r *Repo) SettleIfPending(ctx context.Context, id int64, status, transactionID, method string) (bool, error) {
	now := time.Now()

	updates := map[string]any{"status": status}
	if status == StatusCompleted {
		updates["transaction_id"] = transactionID
		updates["payment_method"] = method
		updates["completed_at"] = &now
	}

	res := r.db.WithContext(ctx).Model(&Payment{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repo) ListByCourse(ctx context.Context, courseID int64) ([]Payment, error) {
	var items []Payment
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}
