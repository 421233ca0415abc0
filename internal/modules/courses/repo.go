package courses

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Get(ctx context.Context, id int64) (Course, bool, error) {
	var c Course
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Course{}, false, nil
	}
	if err != nil {
		return Course{}, false, err
	}
	return c, true, nil
}

func (r *Repo) ListActive(ctx context.Context) ([]Course, error) {
	var items []Course
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}
