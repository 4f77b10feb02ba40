package services

import (
	"context"
	"io"

	"github.com/flameberry/PrimePatrol/models"
)

// WorkerDirectory is the post service's view of the worker service.
type WorkerDirectory interface {
	// FindByIDs resolves every id or fails with ErrNotFound.
	FindByIDs(ctx context.Context, ids []string) ([]models.Worker, error)
	FindOne(ctx context.Context, id string) (*models.Worker, error)
	AppendActivity(ctx context.Context, workerID, activityID string) (*models.Worker, error)
	RemovePostAssignment(ctx context.Context, postID string) error
}

// UserDirectory is the post service's view of the user service.
type UserDirectory interface {
	AddPost(ctx context.Context, userID, postID string) error
	RemovePost(ctx context.Context, userID, postID string) error
}

// ObjectStore stores uploaded images and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

// Outbox keeps notifications that could not be delivered for a later retry.
type Outbox interface {
	Enqueue(ctx context.Context, n Notification, cause error) error
}
