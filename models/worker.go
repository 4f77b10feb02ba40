package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Worker is a municipal field worker who can be assigned to posts.
type Worker struct {
	ID            string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name          string                      `gorm:"size:255;not null" json:"name"`
	EmployeeID    string                      `gorm:"size:64;uniqueIndex;not null" json:"employeeId"`
	Status        WorkerStatus                `gorm:"size:16;index;not null" json:"status"`
	Activities    datatypes.JSONSlice[string] `gorm:"not null" json:"activities"`
	AssignedPosts datatypes.JSONSlice[string] `gorm:"not null" json:"assignedPosts"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

func (w *Worker) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Status == "" {
		w.Status = WorkerInactive
	}
	if w.Activities == nil {
		w.Activities = datatypes.JSONSlice[string]{}
	}
	if w.AssignedPosts == nil {
		w.AssignedPosts = datatypes.JSONSlice[string]{}
	}
	return nil
}
