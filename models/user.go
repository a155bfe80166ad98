package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	OrganizationID uint   `gorm:"index;not null" json:"organization_id"`
	Login          string `gorm:"uniqueIndex;not null" json:"login"`
	PasswordHash   string `gorm:"not null" json:"-"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`

	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}

func (User) TableName() string { return "users" }
