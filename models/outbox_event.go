package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification kinds delivered to collaborator services.
const (
	NotifyUserPostAppend       = "user.post.append"
	NotifyUserPostRemove       = "user.post.remove"
	NotifyWorkerPostRemove     = "worker.post.remove"
	NotifyWorkerActivityAppend = "worker.activity.append"
)

const (
	OutboxPending = "pending"
	OutboxDone    = "done"
	OutboxFailed  = "failed"
)

// OutboxEvent is a cross-service notification that failed and awaits redelivery.
type OutboxEvent struct {
	ID            string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Kind          string     `gorm:"size:64;index;not null" json:"kind"`
	Target        string     `gorm:"type:varchar(36)" json:"target"`
	Ref           string     `gorm:"type:varchar(36);not null" json:"ref"`
	Status        string     `gorm:"size:16;index;not null" json:"status"`
	Attempts      int        `gorm:"not null" json:"attempts"`
	LastError     string     `gorm:"type:text" json:"lastError"`
	NextAttemptAt time.Time  `gorm:"index" json:"nextAttemptAt"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = OutboxPending
	}
	return nil
}
