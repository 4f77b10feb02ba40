package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User represents a citizen account. Passwords are stored as bcrypt hashes only.
type User struct {
	ID           string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string                      `gorm:"size:255;not null" json:"name"`
	Email        string                      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string                      `gorm:"size:255;not null" json:"-"`
	FirebaseID   *string                     `gorm:"size:128;uniqueIndex" json:"firebaseId,omitempty"`
	FCMToken     string                      `gorm:"size:512" json:"fcmToken,omitempty"`
	PostIDs      datatypes.JSONSlice[string] `gorm:"not null" json:"postIds"`
	IsActive     bool                        `gorm:"not null" json:"isActive"`
	Latitude     *float64                    `json:"latitude,omitempty"`
	Longitude    *float64                    `json:"longitude,omitempty"`
	CreatedAt    time.Time                   `json:"createdAt"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.PostIDs == nil {
		u.PostIDs = datatypes.JSONSlice[string]{}
	}
	return nil
}
