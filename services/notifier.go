package services

import (
	"context"
	"fmt"

	"github.com/flameberry/PrimePatrol/models"
)

// Notification is a secondary write on a collaborator service.
// Target is the user or worker id; Ref is the post or activity id.
type Notification struct {
	Kind   string
	Target string
	Ref    string
}

// Notifier delivers notifications to the worker and user services.
type Notifier struct {
	workers WorkerDirectory
	users   UserDirectory
}

func NewNotifier(workers WorkerDirectory, users UserDirectory) *Notifier {
	return &Notifier{workers: workers, users: users}
}

// Deliver performs n once. Every kind is idempotent, so redelivery is safe.
func (n *Notifier) Deliver(ctx context.Context, note Notification) error {
	switch note.Kind {
	case models.NotifyUserPostAppend:
		return n.users.AddPost(ctx, note.Target, note.Ref)
	case models.NotifyUserPostRemove:
		return n.users.RemovePost(ctx, note.Target, note.Ref)
	case models.NotifyWorkerPostRemove:
		return n.workers.RemovePostAssignment(ctx, note.Ref)
	case models.NotifyWorkerActivityAppend:
		_, err := n.workers.AppendActivity(ctx, note.Target, note.Ref)
		return err
	default:
		return fmt.Errorf("unknown notification kind %q", note.Kind)
	}
}
