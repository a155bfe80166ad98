package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization owns leads, templates and documents. Stages are global.
type Organization struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name string `gorm:"not null" json:"name"`
}

func (Organization) TableName() string { return "organizations" }
