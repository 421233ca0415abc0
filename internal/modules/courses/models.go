package courses

import "time"

type Course struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Title       string  `gorm:"type:varchar(200);not null"`
	Description string  `gorm:"type:text"`
	Price       float64 `gorm:"type:decimal(10,2);not null"`
	IsActive    bool    `gorm:"not null;default:true"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Course) TableName() string { return "courses" }
