package outbox

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/observability"
	"github.com/flameberry/PrimePatrol/services"
	"github.com/flameberry/PrimePatrol/utils"
)

// DeliverFunc performs one notification.
type DeliverFunc func(ctx context.Context, n services.Notification) error

// Dispatcher polls the outbox and retries due notifications with exponential backoff.
// Events that exhaust their attempts are parked as failed.
type Dispatcher struct {
	db           *gorm.DB
	deliver      DeliverFunc
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	baseDelay    time.Duration
	maxDelay     time.Duration
	now          func() time.Time
	done         chan struct{}
}

func NewDispatcher(db *gorm.DB, deliver DeliverFunc, cfg config.OutboxConfig) *Dispatcher {
	d := &Dispatcher{
		db:           db,
		deliver:      deliver,
		pollInterval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		batchSize:    cfg.BatchSize,
		maxAttempts:  cfg.MaxAttempts,
		baseDelay:    time.Duration(cfg.BaseDelaySeconds) * time.Second,
		maxDelay:     time.Duration(cfg.MaxDelaySeconds) * time.Second,
		now:          time.Now,
		done:         make(chan struct{}),
	}
	if d.pollInterval <= 0 {
		d.pollInterval = 5 * time.Second
	}
	if d.batchSize <= 0 {
		d.batchSize = 50
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 8
	}
	if d.baseDelay <= 0 {
		d.baseDelay = 2 * time.Second
	}
	if d.maxDelay < d.baseDelay {
		d.maxDelay = 5 * time.Minute
	}
	return d
}

// Start runs the polling loop until ctx is cancelled. Call it in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.done)
	}()

	for {
		if _, err := d.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			utils.Logger.Error("outbox dispatcher error", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Wait blocks until Start has returned.
func (d *Dispatcher) Wait() {
	<-d.done
}

// ProcessBatch retries the due events once and reports how many were delivered.
func (d *Dispatcher) ProcessBatch(ctx context.Context) (int, error) {
	var events []models.OutboxEvent
	err := d.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", models.OutboxPending, d.now()).
		Order("next_attempt_at").
		Limit(d.batchSize).
		Find(&events).Error
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		n := services.Notification{Kind: ev.Kind, Target: ev.Target, Ref: ev.Ref}
		deliverErr := d.deliver(ctx, n)
		if err := d.record(ctx, ev, deliverErr); err != nil {
			return delivered, err
		}
		if deliverErr == nil {
			delivered++
		}
	}
	return delivered, nil
}

func (d *Dispatcher) record(ctx context.Context, ev models.OutboxEvent, deliverErr error) error {
	now := d.now()
	updates := map[string]interface{}{"attempts": ev.Attempts + 1}

	switch {
	case deliverErr == nil:
		updates["status"] = models.OutboxDone
		updates["processed_at"] = now
		observability.RecordOutboxDelivered(ev.Kind)
	case errors.Is(deliverErr, services.ErrNotFound) || errors.Is(deliverErr, services.ErrInvalid):
		// the target is gone or rejects the call; retrying cannot help
		updates["status"] = models.OutboxFailed
		updates["last_error"] = deliverErr.Error()
		updates["processed_at"] = now
		observability.RecordOutboxFailed(ev.Kind)
		utils.Logger.Warn("outbox notification rejected", zap.String("id", ev.ID), zap.String("kind", ev.Kind), zap.Error(deliverErr))
	case ev.Attempts+1 >= d.maxAttempts:
		updates["status"] = models.OutboxFailed
		updates["last_error"] = deliverErr.Error()
		updates["processed_at"] = now
		observability.RecordOutboxFailed(ev.Kind)
		utils.Logger.Error("outbox notification exhausted retries", zap.String("id", ev.ID), zap.String("kind", ev.Kind), zap.Error(deliverErr))
	default:
		updates["last_error"] = deliverErr.Error()
		updates["next_attempt_at"] = now.Add(d.backoff(ev.Attempts + 1))
	}

	return d.db.WithContext(ctx).Model(&models.OutboxEvent{}).Where("id = ?", ev.ID).Updates(updates).Error
}

// backoff is baseDelay * 2^(attempts-1), capped at maxDelay.
func (d *Dispatcher) backoff(attempts int) time.Duration {
	delay := d.baseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= d.maxDelay {
			return d.maxDelay
		}
	}
	return delay
}
