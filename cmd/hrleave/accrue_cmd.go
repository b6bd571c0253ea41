package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hrleave/internal/app/server"
	"hrleave/internal/domain/leave"
	"hrleave/internal/platform/jobs"
)

type accrueOutput struct {
	Command    string `json:"command"`
	DurationMS int64  `json:"duration_ms"`
	Result     any    `json:"result"`
}

func newAccrueCmd() *cobra.Command {
	var (
		staffID   string
		leaveType string
		asOfDate  string
	)

	cmd := &cobra.Command{
		Use:   "accrue",
		Short: "Run leave accrual once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := time.Parse("2006-01-02", asOfDate)
			if err != nil {
				return fmt.Errorf("invalid --as-of-date: %w", err)
			}
			if (staffID == "") != (leaveType == "") {
				return fmt.Errorf("--staff and --type must be given together")
			}
			var t leave.LeaveType
			if leaveType != "" {
				if t, err = leave.ParseLeaveType(leaveType); err != nil {
					return fmt.Errorf("invalid --type: %w", err)
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.RedisAddr = ""
			app, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			run := func(ctx context.Context) (any, error) {
				if staffID != "" {
					return app.Leave.RunAccrual(ctx, leave.SystemActor, staffID, t, asOf)
				}
				return app.Leave.RunAccruals(ctx, leave.SystemActor, asOf)
			}
			start := time.Now()
			res, err := app.Jobs.RunNow(cmd.Context(), jobs.JobLeaveAccrual, run)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), accrueOutput{
				Command:    "accrue",
				DurationMS: time.Since(start).Milliseconds(),
				Result:     res,
			})
		},
	}

	cmd.Flags().StringVar(&staffID, "staff", "", "Staff id (optional, requires --type)")
	cmd.Flags().StringVar(&leaveType, "type", "", "Leave type (optional, requires --staff)")
	cmd.Flags().StringVar(&asOfDate, "as-of-date", time.Now().UTC().Format("2006-01-02"), "As-of date (UTC, YYYY-MM-DD)")
	return cmd
}
