package outbox

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/utils"
)

// StartCleaner periodically deletes delivered events older than retention.
// Failed events are kept for inspection. It stops when ctx is cancelled.
func StartCleaner(ctx context.Context, db *gorm.DB, interval, retention time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if _, err := Purge(ctx, db, time.Now().Add(-retention)); err != nil {
				utils.Logger.Warn("outbox cleaner failed", zap.Error(err))
			}
		}
	}()
}

// Purge removes delivered events processed before cutoff, in batches of 500.
func Purge(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var total int64
	for {
		var ids []string
		err := db.WithContext(ctx).Model(&models.OutboxEvent{}).
			Where("status = ? AND processed_at < ?", models.OutboxDone, cutoff).
			Limit(500).Pluck("id", &ids).Error
		if err != nil || len(ids) == 0 {
			return total, err
		}
		res := db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.OutboxEvent{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
		if len(ids) < 500 {
			return total, nil
		}
	}
}
