// Package outbox persists failed cross-service notifications and redelivers them.
package outbox

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/services"
)

var _ services.Outbox = (*Store)(nil)

// Store writes notifications to the outbox_events table.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Enqueue records n as due immediately; the dispatcher picks it up on its next pass.
func (s *Store) Enqueue(ctx context.Context, n services.Notification, cause error) error {
	event := models.OutboxEvent{
		Kind:          n.Kind,
		Target:        n.Target,
		Ref:           n.Ref,
		Status:        models.OutboxPending,
		NextAttemptAt: s.now(),
	}
	if cause != nil {
		event.LastError = cause.Error()
	}
	return s.db.WithContext(ctx).Create(&event).Error
}

// Pending counts events still waiting for delivery.
func (s *Store) Pending(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("status = ?", models.OutboxPending).Count(&n).Error
	return n, err
}
