package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cori-do/cori-sub001/internal/approval"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var approvalsRedisURL string

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Inspect and decide pending approval requests against the shared Redis ledger",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending approval requests, optionally filtered by tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, _ := cmd.Flags().GetString("tenant")
		sink, err := newApprovalsSink()
		if err != nil {
			return err
		}
		pending, err := sink.ListPending(context.Background(), tenant)
		if err != nil {
			return err
		}
		for _, req := range pending {
			fmt.Printf("%s  tool=%-20s role=%-12s tenant=%-12s expires=%s\n",
				req.ID, req.ToolName, req.Role, req.TenantID, req.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}

var approvalsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending request",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprovalsDecide(approval.StatusApproved),
}

var approvalsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending request",
	Args:  cobra.ExactArgs(1),
	RunE:  runApprovalsDecide(approval.StatusRejected),
}

func runApprovalsDecide(target approval.Status) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid approval id %q: %w", args[0], err)
		}
		decidedBy, _ := cmd.Flags().GetString("by")
		reason, _ := cmd.Flags().GetString("reason")
		sink, err := newApprovalsSink()
		if err != nil {
			return err
		}
		if err := sink.Update(context.Background(), id, target, decidedBy, reason, time.Now()); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", id, target)
		return nil
	}
}

func newApprovalsSink() (*approval.RedisSink, error) {
	opts, err := redis.ParseURL(approvalsRedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return approval.NewRedisSink(redis.NewClient(opts)), nil
}

func init() {
	rootCmd.AddCommand(approvalsCmd)
	approvalsCmd.AddCommand(approvalsListCmd, approvalsApproveCmd, approvalsRejectCmd)

	approvalsCmd.PersistentFlags().StringVar(&approvalsRedisURL, "redis", "redis://localhost:6379", "Redis URL backing the approval ledger")
	approvalsListCmd.Flags().String("tenant", "", "filter to a single tenant")
	approvalsApproveCmd.Flags().String("by", "", "identity of the approver")
	approvalsApproveCmd.Flags().String("reason", "", "optional decision note")
	approvalsRejectCmd.Flags().String("by", "", "identity of the approver")
	approvalsRejectCmd.Flags().String("reason", "", "optional decision note")
}
