package notifications

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID             string     `json:"id"`
	Recipient      string     `json:"recipient"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	LeaveRequestID string     `json:"leaveRequestId,omitempty"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, recipients []string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, recipients []string) (int, error)
	MarkRead(ctx context.Context, recipients []string, notificationID string, at time.Time) error
}

// Directory resolves an inbox to an email address. An empty address skips email.
type Directory interface {
	Email(ctx context.Context, recipient string) (string, error)
}
