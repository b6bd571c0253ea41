package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/jobs"
)

const (
	QueueDefault = "default"

	TaskLeaveNotify  = "leave:notify"
	TaskLeaveAccrual = "leave:accrual"
)

type AccrualPayload struct {
	AsOf *time.Time `json:"asOf,omitempty"`
}

func NewNotifyTask(evt leave.Notification) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeaveNotify, data, asynq.MaxRetry(5)), nil
}

// NewAccrualTask builds an accrual sweep. A nil asOf means "now" at handling time.
func NewAccrualTask(asOf *time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(AccrualPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeaveAccrual, data), nil
}

// Handlers processes leave tasks pulled from Redis.
type Handlers struct {
	Leave     *leave.Service
	Deliverer jobs.Deliverer
	Jobs      *jobs.Service
}

func (h Handlers) HandleNotify(ctx context.Context, t *asynq.Task) error {
	var evt leave.Notification
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("decode notify payload: %v: %w", err, asynq.SkipRetry)
	}
	return h.Deliverer.Deliver(ctx, evt)
}

func (h Handlers) HandleAccrual(ctx context.Context, t *asynq.Task) error {
	var payload AccrualPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode accrual payload: %v: %w", err, asynq.SkipRetry)
	}
	asOf := time.Now().UTC()
	if payload.AsOf != nil {
		asOf = payload.AsOf.UTC()
	}
	run := func(ctx context.Context) (any, error) {
		return h.Leave.RunAccruals(ctx, leave.SystemActor, asOf)
	}
	if h.Jobs != nil {
		_, err := h.Jobs.RunNow(ctx, jobs.JobLeaveAccrual, run)
		return err
	}
	_, err := run(ctx)
	return err
}

func (h Handlers) register(mux *asynq.ServeMux) {
	if h.Deliverer != nil {
		mux.HandleFunc(TaskLeaveNotify, h.HandleNotify)
	}
	if h.Leave != nil {
		mux.HandleFunc(TaskLeaveAccrual, h.HandleAccrual)
	}
}
