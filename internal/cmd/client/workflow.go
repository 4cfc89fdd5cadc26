package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

// NewWorkflowCommand constructs the `workflow` command group.
func NewWorkflowCommand(baseURL BaseURLFunc) *cobra.Command {
	workflowCmd := &cobra.Command{Use: "workflow", Short: "Workflow operations"}
	workflowCmd.AddCommand(
		newWorkflowSubmitCommand(baseURL),
		newWorkflowStatusCommand(baseURL),
		newWorkflowCancelCommand(baseURL),
	)
	return workflowCmd
}

func newWorkflowSubmitCommand(baseURL BaseURLFunc) *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit <workflow-type>",
		Short: "Submit a workflow execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			input, _ := cmd.Flags().GetString("input")
			var raw json.RawMessage
			if input != "" {
				if !json.Valid([]byte(input)) {
					return fmt.Errorf("--input must be valid JSON")
				}
				raw = json.RawMessage(input)
			}
			return postJSON(baseURL, "/v1/workflows/submit", map[string]interface{}{
				"workflowType": args[0],
				"tenantId":     tenant,
				"input":        raw,
			}, cmd.OutOrStdout())
		},
	}
	submitCmd.Flags().StringP("tenant", "t", "default", "Tenant id")
	submitCmd.Flags().String("input", "", "Workflow input as JSON")
	return submitCmd
}

func newWorkflowStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status <workflow-id>",
		Short: "Show workflow execution state and history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"workflowId": {args[0]}}
			return getJSON(baseURL, "/v1/workflows/status", q, cmd.OutOrStdout())
		},
	}
}

func newWorkflowCancelCommand(baseURL BaseURLFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <workflow-id>",
		Short: "Request cooperative cancellation of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return postJSON(baseURL, "/v1/workflows/cancel",
				map[string]string{"workflowId": args[0]}, cmd.OutOrStdout())
		},
	}
}
