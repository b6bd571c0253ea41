package jobs

import (
	"context"
	"errors"

	"hrleave/internal/domain/leave"
)

var ErrQueueFull = errors.New("job queue full")

type Deliverer interface {
	Deliver(ctx context.Context, evt leave.Notification) error
}

// Notifier hands workflow notifications to the in-process queue so request
// handlers never wait on inbox writes or SMTP.
type Notifier struct {
	Jobs      *Service
	Deliverer Deliverer
}

func (n Notifier) Notify(_ context.Context, evt leave.Notification) error {
	ok := n.Jobs.Enqueue(JobNotify, func(ctx context.Context) (any, error) {
		return map[string]any{"kind": evt.Kind, "requestId": evt.RequestID}, n.Deliverer.Deliver(ctx, evt)
	})
	if !ok {
		return ErrQueueFull
	}
	return nil
}
