package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flameberry/PrimePatrol/config"
	"github.com/flameberry/PrimePatrol/models"
	"github.com/flameberry/PrimePatrol/services"
)

var dbSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.AppConfig{
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         fmt.Sprintf("file:outbox_%d?mode=memory&cache=shared", dbSeq.Add(1)),
			AutoMigrate: true,
		},
		Log: config.LogConfig{Level: "silent"},
	}
	db, err := config.InitDatabase(cfg, &models.OutboxEvent{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var testOutboxConfig = config.OutboxConfig{
	Enabled:             true,
	PollIntervalSeconds: 1,
	BatchSize:           10,
	MaxAttempts:         3,
	BaseDelaySeconds:    2,
	MaxDelaySeconds:     60,
}

func load(t *testing.T, db *gorm.DB) []models.OutboxEvent {
	t.Helper()
	var events []models.OutboxEvent
	require.NoError(t, db.Order("created_at").Find(&events).Error)
	return events
}

func TestStoreEnqueue(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.Enqueue(ctx, services.Notification{Kind: models.NotifyUserPostAppend, Target: "u", Ref: "p"}, errors.New("refused")))

	events := load(t, db)
	require.Len(t, events, 1)
	assert.Equal(t, models.OutboxPending, events[0].Status)
	assert.Equal(t, "refused", events[0].LastError)
	assert.Zero(t, events[0].Attempts)

	n, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDispatcherDeliversAndMarksDone(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewStore(db).Enqueue(ctx, services.Notification{Kind: models.NotifyWorkerPostRemove, Ref: "p1"}, nil))

	var got []services.Notification
	d := NewDispatcher(db, func(_ context.Context, n services.Notification) error {
		got = append(got, n)
		return nil
	}, testOutboxConfig)

	delivered, err := d.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].Ref)

	events := load(t, db)
	assert.Equal(t, models.OutboxDone, events[0].Status)
	assert.NotNil(t, events[0].ProcessedAt)

	// done events are not picked up again
	delivered, err = d.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Len(t, got, 1)
}

func TestDispatcherBacksOffThenGivesUp(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewStore(db).Enqueue(ctx, services.Notification{Kind: models.NotifyUserPostAppend, Target: "u", Ref: "p"}, nil))

	now := time.Now().Add(time.Second)
	calls := 0
	d := NewDispatcher(db, func(context.Context, services.Notification) error {
		calls++
		return services.NewError(services.ErrUnavailable, "connection refused")
	}, testOutboxConfig)
	d.now = func() time.Time { return now }

	_, err := d.ProcessBatch(ctx)
	require.NoError(t, err)
	ev := load(t, db)[0]
	assert.Equal(t, models.OutboxPending, ev.Status)
	assert.Equal(t, 1, ev.Attempts)
	assert.WithinDuration(t, now.Add(2*time.Second), ev.NextAttemptAt, time.Millisecond)

	// not due yet
	_, err = d.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(3 * time.Second)
	_, err = d.ProcessBatch(ctx)
	require.NoError(t, err)
	ev = load(t, db)[0]
	assert.Equal(t, 2, ev.Attempts)
	assert.WithinDuration(t, now.Add(4*time.Second), ev.NextAttemptAt, time.Millisecond)

	now = now.Add(5 * time.Second)
	_, err = d.ProcessBatch(ctx)
	require.NoError(t, err)
	ev = load(t, db)[0]
	assert.Equal(t, models.OutboxFailed, ev.Status)
	assert.Equal(t, 3, ev.Attempts)
	assert.Equal(t, 3, calls)
}

func TestDispatcherParksRejectedNotifications(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, NewStore(db).Enqueue(ctx, services.Notification{Kind: models.NotifyUserPostAppend, Target: "u", Ref: "p"}, nil))

	d := NewDispatcher(db, func(context.Context, services.Notification) error {
		return services.NewError(services.ErrNotFound, "user not found")
	}, testOutboxConfig)

	_, err := d.ProcessBatch(ctx)
	require.NoError(t, err)
	ev := load(t, db)[0]
	assert.Equal(t, models.OutboxFailed, ev.Status)
	assert.Equal(t, "user not found", ev.LastError)
}

func TestBackoffIsCapped(t *testing.T) {
	d := NewDispatcher(nil, nil, config.OutboxConfig{BaseDelaySeconds: 2, MaxDelaySeconds: 10})
	assert.Equal(t, 2*time.Second, d.backoff(1))
	assert.Equal(t, 4*time.Second, d.backoff(2))
	assert.Equal(t, 8*time.Second, d.backoff(3))
	assert.Equal(t, 10*time.Second, d.backoff(4))
	assert.Equal(t, 10*time.Second, d.backoff(30))
}

func TestDispatcherStartStopsWithContext(t *testing.T) {
	db := setupTestDB(t)
	delivered := make(chan struct{}, 1)
	require.NoError(t, NewStore(db).Enqueue(context.Background(), services.Notification{Kind: models.NotifyWorkerPostRemove, Ref: "p"}, nil))

	d := NewDispatcher(db, func(context.Context, services.Notification) error {
		delivered <- struct{}{}
		return nil
	}, testOutboxConfig)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Start(ctx)

	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
	cancel()
	d.Wait()
}

func TestPurgeKeepsFailedAndRecent(t *testing.T) {
	db := setupTestDB(t)
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	rows := []models.OutboxEvent{
		{Kind: "k", Ref: "1", Status: models.OutboxDone, ProcessedAt: &old},
		{Kind: "k", Ref: "2", Status: models.OutboxDone, ProcessedAt: &recent},
		{Kind: "k", Ref: "3", Status: models.OutboxFailed, ProcessedAt: &old},
		{Kind: "k", Ref: "4", Status: models.OutboxPending},
	}
	require.NoError(t, db.Create(&rows).Error)

	n, err := Purge(context.Background(), db, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var left []string
	require.NoError(t, db.Model(&models.OutboxEvent{}).Order("ref").Pluck("ref", &left).Error)
	assert.Equal(t, []string{"2", "3", "4"}, left)
}
