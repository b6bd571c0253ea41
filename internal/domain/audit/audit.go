package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/leave"
	"hrleave/internal/requestctx"
)

type Event struct {
	ID             string          `json:"id"`
	Action         string          `json:"action"`
	User           string          `json:"user"`
	UserRole       string          `json:"userRole"`
	StaffID        string          `json:"staffId,omitempty"`
	LeaveRequestID string          `json:"leaveRequestId,omitempty"`
	Details        json.RawMessage `json:"details,omitempty"`
	RequestID      string          `json:"requestId"`
	IP             string          `json:"ip"`
	UserAgent      string          `json:"userAgent,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Filter struct {
	Action         string
	StaffID        string
	LeaveRequestID string
	// Since and Until bound created_at as [Since, Until); zero leaves a side open.
	Since time.Time
	Until time.Time
}

type StoreAPI interface {
	InsertEvent(ctx context.Context, evt Event) error
	ListEvents(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	CountEvents(ctx context.Context, filter Filter) (int, error)
}

type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

// Record persists a workflow audit entry, tagging it with the request id, client ip
// and user agent carried in ctx.
func (s *Service) Record(ctx context.Context, entry leave.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return s.store.InsertEvent(ctx, Event{
		ID:             uuid.NewString(),
		Action:         entry.Action,
		User:           entry.User,
		UserRole:       string(entry.UserRole),
		StaffID:        entry.StaffID,
		LeaveRequestID: entry.LeaveRequestID,
		Details:        details,
		RequestID:      requestctx.GetRequestID(ctx),
		IP:             requestctx.GetClientIP(ctx),
		UserAgent:      requestctx.GetUserAgent(ctx),
		CreatedAt:      createdAt,
	})
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	return s.store.ListEvents(ctx, filter, limit, offset)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.store.CountEvents(ctx, filter)
}
