package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/jobs"
	"hrleave/internal/platform/store/sqlite"
)

type recordingDeliverer struct {
	got []leave.Notification
	err error
}

func (r *recordingDeliverer) Deliver(_ context.Context, evt leave.Notification) error {
	r.got = append(r.got, evt)
	return r.err
}

func TestHandleNotifyDelivers(t *testing.T) {
	d := &recordingDeliverer{}
	h := Handlers{Deliverer: d}

	task, err := NewNotifyTask(leave.Notification{Kind: leave.NotifyLevelAdvanced, RequestID: "r1", Level: 2, NextRole: leave.RoleHR})
	require.NoError(t, err)
	require.NoError(t, h.HandleNotify(context.Background(), task))

	require.Len(t, d.got, 1)
	assert.Equal(t, leave.RoleHR, d.got[0].NextRole)
	assert.Equal(t, 2, d.got[0].Level)
}

func TestHandleNotifyRetriesDeliveryErrors(t *testing.T) {
	d := &recordingDeliverer{err: errors.New("smtp down")}
	task, err := NewNotifyTask(leave.Notification{Kind: leave.NotifyApproved})
	require.NoError(t, err)

	err = Handlers{Deliverer: d}.HandleNotify(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlersSkipRetryOnBadPayload(t *testing.T) {
	bad := asynq.NewTask(TaskLeaveNotify, []byte("{"))
	err := Handlers{Deliverer: &recordingDeliverer{}}.HandleNotify(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)

	bad = asynq.NewTask(TaskLeaveAccrual, []byte("nope"))
	err = Handlers{}.HandleAccrual(context.Background(), bad)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type countingRuns struct {
	started, finished int
	status            string
}

func (c *countingRuns) StartRun(context.Context, string, string, time.Time) error {
	c.started++
	return nil
}

func (c *countingRuns) FinishRun(_ context.Context, _ string, status string, _ []byte, _ time.Time) error {
	c.finished++
	c.status = status
	return nil
}

func TestHandleAccrualRecordsJobRun(t *testing.T) {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runs := &countingRuns{}
	h := Handlers{Leave: leave.NewService(store), Jobs: jobs.New(runs)}

	asOf := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := NewAccrualTask(&asOf)
	require.NoError(t, err)
	require.NoError(t, h.HandleAccrual(context.Background(), task))

	assert.Equal(t, 1, runs.started)
	assert.Equal(t, 1, runs.finished)
	assert.Equal(t, "completed", runs.status)
}
