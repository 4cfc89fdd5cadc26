package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewEventCommand constructs the `event` command group.
func NewEventCommand(baseURL BaseURLFunc) *cobra.Command {
	eventCmd := &cobra.Command{Use: "event", Short: "Event operations"}
	eventCmd.AddCommand(
		newEventPublishCommand(baseURL),
		newEventStatusCommand(baseURL),
		newEventSearchCommand(baseURL),
	)
	return eventCmd
}

func newEventPublishCommand(baseURL BaseURLFunc) *cobra.Command {
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a sync event toward a consumer application",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			eventType, _ := cmd.Flags().GetString("type")
			app, _ := cmd.Flags().GetString("app")
			entityType, _ := cmd.Flags().GetString("entity-type")
			entityID, _ := cmd.Flags().GetString("entity-id")
			data, _ := cmd.Flags().GetString("data")
			publishedBy, _ := cmd.Flags().GetString("published-by")

			var raw json.RawMessage
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data must be valid JSON")
				}
				raw = json.RawMessage(data)
			}
			return postJSON(baseURL, "/v1/events/publish", map[string]interface{}{
				"tenantId":            tenant,
				"eventType":           eventType,
				"consumerApplication": app,
				"entityType":          entityType,
				"entityId":            entityID,
				"data":                raw,
				"publishedBy":         publishedBy,
			}, cmd.OutOrStdout())
		},
	}
	publishCmd.Flags().StringP("tenant", "t", "default", "Tenant id")
	publishCmd.Flags().String("type", "", "Event type (e.g. credit.allocated)")
	publishCmd.Flags().String("app", "", "Consumer application (e.g. crm)")
	publishCmd.Flags().String("entity-type", "", "Entity type")
	publishCmd.Flags().String("entity-id", "", "Entity id")
	publishCmd.Flags().String("data", "", "Event payload as JSON")
	publishCmd.Flags().String("published-by", "wrapper", "Publishing application")
	return publishCmd
}

func newEventStatusCommand(baseURL BaseURLFunc) *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status <event-id>",
		Short: "Show the tracking record for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"eventId": {args[0]}}
			return getJSON(baseURL, "/v1/events/status", q, cmd.OutOrStdout())
		},
	}
	return statusCmd
}

func newEventSearchCommand(baseURL BaseURLFunc) *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "Search tracking records within a time window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			limit, _ := cmd.Flags().GetInt("limit")
			filter, _ := cmd.Flags().GetString("filter")

			q := url.Values{"tenantId": {tenant}}
			if from != "" {
				ms, err := parseTimeMs(from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				q.Set("fromMs", strconv.FormatInt(ms, 10))
			}
			if to != "" {
				ms, err := parseTimeMs(to)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				q.Set("toMs", strconv.FormatInt(ms, 10))
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if filter != "" {
				q.Set("filter", filter)
			}
			return getJSON(baseURL, "/v1/events/search", q, cmd.OutOrStdout())
		},
	}
	searchCmd.Flags().StringP("tenant", "t", "default", "Tenant id")
	searchCmd.Flags().String("from", "", "Window start: RFC3339 or ms")
	searchCmd.Flags().String("to", "", "Window end: RFC3339 or ms")
	searchCmd.Flags().Int("limit", 0, "Max records (0 = server default)")
	searchCmd.Flags().String("filter", "", `CEL filter (e.g. status == "FAILED")`)
	return searchCmd
}

func parseTimeMs(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("expected ms or RFC3339")
	}
	return t.UnixMilli(), nil
}
