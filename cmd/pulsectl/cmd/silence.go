package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

var (
	silenceWorkspace  string
	silenceKind       string
	silenceValue      string
	silenceReason     string
	silenceFor        string
	silenceStartsAt   string
	silenceCreatedBy  string
	silenceActiveOnly bool
)

// silenceCmd represents the silence command group
var silenceCmd = &cobra.Command{
	Use:   "silence",
	Short: "Suppression window commands",
	Long: `Commands for managing suppression windows.

A suppression window silences matching rules for its duration: matching
rules are still evaluated and stamped, but no alerts fire.

Examples:
  # Silence a metric for two hours starting now
  pulsectl silence create --workspace default --kind metric --value cpu_usage --for 2h --reason "maintenance"

  # Silence everything at low severity over a deploy window
  pulsectl silence create --workspace default --kind severity --value low --for 30m

  # List active windows
  pulsectl silence list --workspace default --active

  # Remove a window early
  pulsectl silence delete <suppression-id>`,
}

// silenceListCmd lists suppression windows
var silenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suppression windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		if silenceWorkspace == "" {
			return fmt.Errorf("--workspace is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		var suppressions []*models.Suppression
		if silenceActiveOnly {
			suppressions, err = store.Suppressions().ListActive(ctx, silenceWorkspace, time.Now())
		} else {
			suppressions, err = store.Suppressions().List(ctx, silenceWorkspace)
		}
		if err != nil {
			return fmt.Errorf("list suppressions: %w", err)
		}

		if output == "json" {
			data, _ := json.MarshalIndent(suppressions, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(suppressions) == 0 {
			fmt.Println("No suppression windows found.")
			return nil
		}

		now := time.Now()
		fmt.Printf("\n%-36s  %-8s  %-16s  %-16s  %-16s  %s\n",
			"ID", "KIND", "VALUE", "STARTS", "ENDS", "ACTIVE")
		fmt.Println(strings.Repeat("-", 110))

		for _, s := range suppressions {
			fmt.Printf("%-36s  %-8s  %-16s  %-16s  %-16s  %t\n",
				s.ID,
				s.Kind,
				truncate(s.Value, 16),
				s.StartsAt.Format("2006-01-02 15:04"),
				s.EndsAt.Format("2006-01-02 15:04"),
				s.ActiveAt(now),
			)
		}
		fmt.Printf("\nTotal: %d window(s)\n", len(suppressions))

		return nil
	},
}

// silenceCreateCmd creates a suppression window
var silenceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a suppression window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if silenceWorkspace == "" {
			return fmt.Errorf("--workspace is required")
		}

		kind, ok := models.ParseSuppressionKind(silenceKind)
		if !ok {
			return fmt.Errorf("invalid kind: %s (use: rule, metric, severity)", silenceKind)
		}
		if silenceValue == "" {
			return fmt.Errorf("--value is required")
		}

		d, err := time.ParseDuration(silenceFor)
		if err != nil {
			return fmt.Errorf("invalid --for duration: %q", silenceFor)
		}
		if d <= 0 {
			return fmt.Errorf("--for must be positive")
		}

		startsAt := time.Now()
		if silenceStartsAt != "" {
			startsAt, err = time.Parse(time.RFC3339, silenceStartsAt)
			if err != nil {
				return fmt.Errorf("invalid --starts-at, want RFC3339: %q", silenceStartsAt)
			}
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		suppression := &models.Suppression{
			ID:          uuid.New().String(),
			WorkspaceID: silenceWorkspace,
			Kind:        kind,
			Value:       silenceValue,
			Reason:      strings.TrimSpace(silenceReason),
			StartsAt:    startsAt,
			EndsAt:      startsAt.Add(d),
			CreatedBy:   silenceCreatedBy,
			CreatedAt:   time.Now(),
		}

		if err := store.Suppressions().Create(context.Background(), suppression); err != nil {
			return fmt.Errorf("create suppression: %w", err)
		}

		fmt.Printf("\nSuppression window created:\n")
		fmt.Printf("  ID:     %s\n", suppression.ID)
		fmt.Printf("  Kind:   %s = %s\n", suppression.Kind, suppression.Value)
		fmt.Printf("  Starts: %s\n", suppression.StartsAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Ends:   %s\n", suppression.EndsAt.Format("2006-01-02 15:04:05"))

		return nil
	},
}

// silenceDeleteCmd deletes a suppression window
var silenceDeleteCmd = &cobra.Command{
	Use:   "delete <suppression-id>",
	Short: "Delete a suppression window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Suppressions().Delete(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete suppression: %w", err)
		}

		fmt.Printf("Suppression window deleted: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(silenceCmd)
	silenceCmd.AddCommand(silenceListCmd)
	silenceCmd.AddCommand(silenceCreateCmd)
	silenceCmd.AddCommand(silenceDeleteCmd)

	silenceListCmd.Flags().StringVar(&silenceWorkspace, "workspace", "", "workspace ID (required)")
	silenceListCmd.Flags().BoolVar(&silenceActiveOnly, "active", false, "only show currently active windows")
	silenceListCmd.MarkFlagRequired("workspace")

	silenceCreateCmd.Flags().StringVar(&silenceWorkspace, "workspace", "", "workspace ID (required)")
	silenceCreateCmd.Flags().StringVar(&silenceKind, "kind", "", "what to match: rule, metric, severity (required)")
	silenceCreateCmd.Flags().StringVar(&silenceValue, "value", "", "rule ID, metric type, or severity (required)")
	silenceCreateCmd.Flags().StringVar(&silenceFor, "for", "1h", "window duration")
	silenceCreateCmd.Flags().StringVar(&silenceStartsAt, "starts-at", "", "window start as RFC3339 (default: now)")
	silenceCreateCmd.Flags().StringVar(&silenceReason, "reason", "", "why the window exists")
	silenceCreateCmd.Flags().StringVar(&silenceCreatedBy, "by", "", "who created the window")
	silenceCreateCmd.MarkFlagRequired("workspace")
	silenceCreateCmd.MarkFlagRequired("kind")
	silenceCreateCmd.MarkFlagRequired("value")
}
