package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pulsewatch/internal/condition"
	"github.com/good-yellow-bee/pulsewatch/internal/engine"
	"github.com/good-yellow-bee/pulsewatch/internal/metricstore"
	"github.com/good-yellow-bee/pulsewatch/internal/notifier"
	"github.com/good-yellow-bee/pulsewatch/internal/storage"
)

var (
	alertWorkspace string
	alertLimit     int
	alertActor     string
	alertNotes     string
)

// alertCmd represents the alert command group
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Alert lifecycle commands",
	Long: `Commands for inspecting and resolving alerts.

Examples:
  # List recent alerts in a workspace
  pulsectl alert list --workspace default

  # Acknowledge an alert, halting escalation
  pulsectl alert ack <alert-id> --by alice

  # Resolve an alert with notes
  pulsectl alert resolve <alert-id> --by alice --notes "restarted the worker"`,
}

// alertListCmd lists alerts in a workspace
var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts in a workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertWorkspace == "" {
			return fmt.Errorf("--workspace is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		alerts, total, err := store.Alerts().List(ctx, alertWorkspace, alertLimit, 0)
		if err != nil {
			return fmt.Errorf("list alerts: %w", err)
		}

		if output == "json" {
			data, _ := json.MarshalIndent(alerts, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(alerts) == 0 {
			fmt.Println("No alerts found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-30s  %-9s  %-16s  %s\n",
			"ID", "TITLE", "SEVERITY", "TRIGGERED", "STATE")
		fmt.Println(strings.Repeat("-", 110))

		for _, a := range alerts {
			state := "firing"
			switch {
			case a.IsResolved():
				state = "resolved"
			case a.IsAcknowledged():
				state = "acked"
			case a.Escalated:
				state = fmt.Sprintf("escalated L%d", a.EscalationLevel)
			}
			fmt.Printf("%-36s  %-30s  %-9s  %-16s  %s\n",
				a.ID,
				truncate(a.Title, 30),
				a.Severity,
				a.TriggeredAt.Format("2006-01-02 15:04"),
				state,
			)
		}
		fmt.Printf("\nShowing %d of %d alert(s)\n", len(alerts), total)

		return nil
	},
}

// alertAckCmd acknowledges an alert
var alertAckCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an alert",
	Long:  `Acknowledge an alert. Acknowledged alerts never escalate.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertActor == "" {
			return fmt.Errorf("--by is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		alert, err := localEngine(store).Acknowledge(context.Background(), args[0], alertActor)
		if err != nil {
			return fmt.Errorf("acknowledge alert: %w", err)
		}

		fmt.Printf("Alert acknowledged by %s: %s\n", alert.AcknowledgedBy, alert.Title)
		return nil
	},
}

// alertResolveCmd resolves an alert
var alertResolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Resolve an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertActor == "" {
			return fmt.Errorf("--by is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		alert, err := localEngine(store).Resolve(context.Background(), args[0], alertActor, alertNotes)
		if err != nil {
			return fmt.Errorf("resolve alert: %w", err)
		}

		fmt.Printf("Alert resolved by %s: %s\n", alert.ResolvedBy, alert.Title)
		return nil
	},
}

// localEngine builds an engine over the local database for lifecycle
// operations. No channels are registered, so nothing is dispatched.
func localEngine(store storage.Storage) *engine.Engine {
	dispatcher := notifier.NewDispatcher(store.Notifications(), 1, 1)
	return engine.New(store, condition.NewRegistry(metricstore.NewMemoryStore()), dispatcher)
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertListCmd)
	alertCmd.AddCommand(alertAckCmd)
	alertCmd.AddCommand(alertResolveCmd)

	alertListCmd.Flags().StringVar(&alertWorkspace, "workspace", "", "workspace ID (required)")
	alertListCmd.Flags().IntVar(&alertLimit, "limit", 50, "maximum number of alerts to show")
	alertListCmd.MarkFlagRequired("workspace")

	alertAckCmd.Flags().StringVar(&alertActor, "by", "", "who is acknowledging (required)")
	alertAckCmd.MarkFlagRequired("by")

	alertResolveCmd.Flags().StringVar(&alertActor, "by", "", "who is resolving (required)")
	alertResolveCmd.Flags().StringVar(&alertNotes, "notes", "", "resolution notes")
	alertResolveCmd.MarkFlagRequired("by")
}
