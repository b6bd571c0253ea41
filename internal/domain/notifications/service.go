package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/leave"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	Directory   Directory
	DefaultFrom string
	Now         func() time.Time
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// RoleInbox is the recipient key shared by all holders of role.
func RoleInbox(role leave.Role) string {
	return rolePrefix + string(role)
}

// Inboxes lists the recipients a user reads: their own and their role's.
func Inboxes(staffID string, role leave.Role) []string {
	out := make([]string, 0, 2)
	if staffID != "" {
		out = append(out, staffID)
	}
	if role != "" {
		out = append(out, RoleInbox(role))
	}
	return out
}

// Create stores an inbox row and mails it when a directory and mailer are set.
// Email failures are logged, never returned.
func (s *Service) Create(ctx context.Context, recipient, ntype, title, body, requestID string) error {
	n := Notification{
		ID:             uuid.NewString(),
		Recipient:      recipient,
		Type:           ntype,
		Title:          title,
		Body:           body,
		LeaveRequestID: requestID,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	if s.Mailer == nil || s.Directory == nil {
		return nil
	}
	email, err := s.Directory.Email(ctx, recipient)
	if err != nil {
		slog.Warn("notification email lookup failed", "recipient", recipient, "err", err)
		return nil
	}
	if email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, s.DefaultFrom, email, title, body); err != nil {
		slog.Warn("notification email send failed", "recipient", recipient, "err", err)
	}
	return nil
}

// Deliver fans a workflow event out to the requester and the next approver inbox.
func (s *Service) Deliver(ctx context.Context, evt leave.Notification) error {
	msgs := compose(evt)
	var firstErr error
	for _, m := range msgs {
		if err := s.Create(ctx, m.recipient, m.ntype, m.title, m.body, evt.RequestID); err != nil {
			slog.Warn("notification create failed", "recipient", m.recipient, "type", m.ntype, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) List(ctx context.Context, recipients []string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, recipients, limit, offset)
}

func (s *Service) Count(ctx context.Context, recipients []string) (int, error) {
	return s.store.CountNotifications(ctx, recipients)
}

func (s *Service) MarkRead(ctx context.Context, recipients []string, notificationID string) error {
	return s.store.MarkRead(ctx, recipients, notificationID, s.now())
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type message struct {
	recipient string
	ntype     string
	title     string
	body      string
}

func compose(evt leave.Notification) []message {
	who := evt.StaffName
	if strings.TrimSpace(who) == "" {
		who = evt.StaffID
	}
	kind := string(evt.LeaveType)

	switch evt.Kind {
	case leave.NotifySubmitted:
		approver := evt.NextRole
		if approver == "" {
			approver = leave.RoleManager
		}
		return []message{
			{evt.StaffID, TypeLeaveSubmitted, "Leave request submitted",
				fmt.Sprintf("Your %s leave request has been submitted for approval.", kind)},
			{RoleInbox(approver), TypeLeaveAwaiting, "Leave request awaiting approval",
				fmt.Sprintf("%s submitted a %s leave request awaiting your approval.", who, kind)},
		}
	case leave.NotifyLevelAdvanced:
		return []message{
			{evt.StaffID, TypeLeaveLevelAdvanced, "Leave request progressed",
				fmt.Sprintf("Your %s leave request passed level %d and awaits level %d.", kind, evt.Level-1, evt.Level)},
			{RoleInbox(evt.NextRole), TypeLeaveAwaiting, "Leave request awaiting approval",
				fmt.Sprintf("%s's %s leave request awaits level %d approval.", who, kind, evt.Level)},
		}
	case leave.NotifyApproved:
		return []message{{evt.StaffID, TypeLeaveApproved, "Leave request approved",
			fmt.Sprintf("Your %s leave request has been approved.", kind)}}
	case leave.NotifyRejected:
		return []message{{evt.StaffID, TypeLeaveRejected, "Leave request rejected",
			fmt.Sprintf("Your %s leave request was rejected at level %d.", kind, evt.Level)}}
	case leave.NotifyCancelled:
		return []message{{evt.StaffID, TypeLeaveCancelled, "Leave request cancelled",
			fmt.Sprintf("Your %s leave request has been cancelled.", kind)}}
	}
	return nil
}

// DomainDirectory maps staff inboxes to <staffID>@domain and role inboxes to <role>@domain.
type DomainDirectory struct {
	Domain string
}

func (d DomainDirectory) Email(_ context.Context, recipient string) (string, error) {
	if d.Domain == "" || recipient == "" {
		return "", nil
	}
	local := strings.TrimPrefix(recipient, rolePrefix)
	return local + "@" + d.Domain, nil
}
