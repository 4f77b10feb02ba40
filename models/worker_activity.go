package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WorkerActivity is an append-only ledger entry recording what a worker did on a post.
type WorkerActivity struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID      string    `gorm:"type:varchar(36);index;not null" json:"postId"`
	WorkerID    string    `gorm:"type:varchar(36);index;not null" json:"workerId"`
	Action      string    `gorm:"size:128;not null" json:"action"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`

	// Worker is filled from the worker service when available.
	Worker *Worker `gorm:"-" json:"worker,omitempty"`
}

// BeforeCreate uses time-ordered ids so records created in the same instant keep their order.
func (a *WorkerActivity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		a.ID = id.String()
	}
	return nil
}
