package models

import "time"

// LeadStage is a globally shared pipeline step. SortOrder is a strict total
// order used for the forward-only advancement check; the name is the durable
// identity (orders get renumbered by migrations, names do not change).
type LeadStage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name       string `gorm:"uniqueIndex;not null" json:"name"`
	SortOrder  int    `gorm:"not null;default:0" json:"sort_order"`
	Color      string `json:"color"`
	IsDefault  bool   `gorm:"not null;default:false" json:"is_default"`
	IsArchived bool   `gorm:"not null;default:false" json:"is_archived"`
}

func (LeadStage) TableName() string { return "lead_stages" }
