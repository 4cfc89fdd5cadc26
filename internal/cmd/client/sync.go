package client

import (
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewAckCommand constructs the `ack` command group.
func NewAckCommand(baseURL BaseURLFunc) *cobra.Command {
	ackCmd := &cobra.Command{Use: "ack", Short: "Acknowledgment operations"}

	submitCmd := &cobra.Command{
		Use:   "submit <event-id>",
		Short: "Submit an acknowledgment on behalf of a consumer application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			app, _ := cmd.Flags().GetString("app")
			result, _ := cmd.Flags().GetString("result")
			errMsg, _ := cmd.Flags().GetString("error")
			return postJSON(baseURL, "/v1/acks/submit", map[string]interface{}{
				"eventId":             args[0],
				"tenantId":            tenant,
				"consumerApplication": app,
				"result":              result,
				"errorDetail":         errMsg,
				"ackTimestamp":        time.Now().UTC(),
			}, cmd.OutOrStdout())
		},
	}
	submitCmd.Flags().StringP("tenant", "t", "default", "Tenant id")
	submitCmd.Flags().String("app", "", "Consumer application")
	submitCmd.Flags().String("result", "OK", "Ack result: OK|ERROR")
	submitCmd.Flags().String("error", "", "Error message for ERROR acks")
	ackCmd.AddCommand(submitCmd)
	return ackCmd
}

// NewSyncCommand constructs the `sync` command group.
func NewSyncCommand(baseURL BaseURLFunc) *cobra.Command {
	syncCmd := &cobra.Command{Use: "sync", Short: "Sync status operations"}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show aggregated sync health for a tenant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			windowMs, _ := cmd.Flags().GetInt64("window-ms")
			q := url.Values{"tenantId": {tenant}}
			if windowMs > 0 {
				q.Set("windowMs", strconv.FormatInt(windowMs, 10))
			}
			return getJSON(baseURL, "/v1/sync/health", q, cmd.OutOrStdout())
		},
	}
	healthCmd.Flags().StringP("tenant", "t", "default", "Tenant id")
	healthCmd.Flags().Int64("window-ms", 0, "Rolling window in ms (0 = server default)")
	syncCmd.AddCommand(healthCmd)
	return syncCmd
}

// NewTenantCommand constructs the `tenant` command group.
func NewTenantCommand(baseURL BaseURLFunc) *cobra.Command {
	tenantCmd := &cobra.Command{Use: "tenant", Short: "Tenant operations"}

	createCmd := &cobra.Command{
		Use:   "create <tenant-id>",
		Short: "Create tenant metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(baseURL, "/v1/tenants/create",
				map[string]string{"tenantId": args[0]}, cmd.OutOrStdout())
		},
	}
	tenantCmd.AddCommand(createCmd)
	return tenantCmd
}
