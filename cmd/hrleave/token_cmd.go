package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hrleave/internal/auth"
	"hrleave/internal/domain/leave"
)

// newTokenCmd mints a bearer token for local use. Identity is owned by an
// external provider in deployed environments.
func newTokenCmd() *cobra.Command {
	var (
		userID  string
		staffID string
		name    string
		role    string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for a staff member",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch leave.Role(role) {
			case leave.RoleEmployee, leave.RoleManager, leave.RoleHR, leave.RoleAdmin:
			default:
				return fmt.Errorf("invalid --role %q", role)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if userID == "" {
				userID = uuid.NewString()
			}
			token, err := auth.GenerateToken(cfg.JWTSecret, auth.Claims{
				UserID:  userID,
				StaffID: staffID,
				Name:    name,
				Role:    role,
			}, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id (random when empty)")
	cmd.Flags().StringVar(&staffID, "staff", "", "Staff id")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&role, "role", string(leave.RoleEmployee), "employee, manager, hr or system_admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
