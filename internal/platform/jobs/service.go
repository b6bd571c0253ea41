package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"hrleave/internal/domain/leave"
)

const (
	JobLeaveAccrual = "leave_accrual"
	JobNotify       = "leave_notify"

	defaultQueueSize = 128
)

// RunStore keeps a row per job execution.
type RunStore interface {
	StartRun(ctx context.Context, id, jobType string, at time.Time) error
	FinishRun(ctx context.Context, id, status string, details []byte, at time.Time) error
}

type Recorder interface {
	JobRun(job, status string)
}

type Func func(context.Context) (any, error)

// Service is an in-process job queue drained by a single worker goroutine.
type Service struct {
	Runs    RunStore
	Metrics Recorder
	queue   chan job
}

type job struct {
	Type string
	Run  Func
}

func New(runs RunStore) *Service {
	return &Service{Runs: runs, queue: make(chan job, defaultQueueSize)}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Enqueue drops the job with a warning when the queue is full.
func (s *Service) Enqueue(jobType string, run Func) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run Func) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// ScheduleAccruals enqueues an accrual run for every staff member each interval.
func (s *Service) ScheduleAccruals(ctx context.Context, interval time.Duration, svc *leave.Service) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Enqueue(JobLeaveAccrual, AccrualJob(svc))
			}
		}
	}()
}

// AccrualJob runs every due accrual as the system actor.
func AccrualJob(svc *leave.Service) Func {
	return func(ctx context.Context) (any, error) {
		return svc.RunAccruals(ctx, leave.SystemActor, time.Now().UTC())
	}
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id := uuid.NewString()
		if err := s.Runs.StartRun(ctx, id, j.Type, time.Now().UTC()); err != nil {
			slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		} else {
			runID = id
		}
	}

	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	if s.Metrics != nil {
		s.Metrics.JobRun(j.Type, status)
	}

	if runID != "" {
		payload, marshalErr := json.Marshal(details)
		if marshalErr != nil {
			slog.Warn("job details marshal failed", "err", marshalErr)
			payload = []byte("{}")
		}
		if updErr := s.Runs.FinishRun(ctx, runID, status, payload, time.Now().UTC()); updErr != nil {
			slog.Warn("job run update failed", "jobType", j.Type, "err", updErr)
		}
	}
	return details, err
}
