package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Post represents an issue reported by a citizen.
type Post struct {
	ID               string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID           string                      `gorm:"type:varchar(36);index;not null" json:"userId"`
	Title            string                      `gorm:"size:255;not null" json:"title"`
	Content          string                      `gorm:"type:text;not null" json:"content"`
	ImageURL         *string                     `gorm:"size:1024" json:"imageUrl,omitempty"`
	Status           PostStatus                  `gorm:"size:16;index;not null" json:"status"`
	AssignedWorkers  datatypes.JSONSlice[string] `gorm:"not null" json:"assignedWorkers"`
	WorkerActivities datatypes.JSONSlice[string] `gorm:"not null" json:"workerActivities"`
	Latitude         *float64                    `json:"latitude,omitempty"`
	Longitude        *float64                    `json:"longitude,omitempty"`
	CreatedAt        time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

// BeforeCreate assigns an id and normalizes the reference lists.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.AssignedWorkers == nil {
		p.AssignedWorkers = datatypes.JSONSlice[string]{}
	}
	if p.WorkerActivities == nil {
		p.WorkerActivities = datatypes.JSONSlice[string]{}
	}
	return nil
}
