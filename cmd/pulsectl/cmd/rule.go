package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/pulsewatch/internal/condition"
	"github.com/good-yellow-bee/pulsewatch/internal/models"
)

var (
	ruleWorkspace     string
	ruleConditionType string
	ruleConditionJSON string
)

// ruleCmd represents the rule command group
var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Monitoring rule commands",
	Long: `Commands for inspecting and managing monitoring rules.

Examples:
  # List all rules in a workspace
  pulsectl rule list --workspace default

  # Show a rule
  pulsectl rule show <rule-id>

  # Disable a rule without deleting it
  pulsectl rule disable <rule-id>

  # Validate a condition config before creating a rule via the API
  pulsectl rule validate --type anomaly --condition '{"sensitivity":3.0,"window":"1h"}'`,
}

// ruleListCmd lists rules in a workspace
var ruleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rules in a workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ruleWorkspace == "" {
			return fmt.Errorf("--workspace is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		rules, err := store.Rules().List(ctx, ruleWorkspace)
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}

		if output == "json" {
			data, _ := json.MarshalIndent(rules, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		if len(rules) == 0 {
			fmt.Println("No rules found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-24s  %-16s  %-10s  %-9s  %s\n",
			"ID", "NAME", "METRIC", "CONDITION", "SEVERITY", "ENABLED")
		fmt.Println(strings.Repeat("-", 110))

		for _, r := range rules {
			fmt.Printf("%-36s  %-24s  %-16s  %-10s  %-9s  %t\n",
				r.ID,
				truncate(r.Name, 24),
				truncate(r.MetricType, 16),
				r.ConditionType,
				r.Severity,
				r.Enabled,
			)
		}
		fmt.Printf("\nTotal: %d rule(s)\n", len(rules))

		return nil
	},
}

// ruleShowCmd shows rule details
var ruleShowCmd = &cobra.Command{
	Use:   "show <rule-id>",
	Short: "Show rule details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		rule, err := store.Rules().GetByID(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get rule: %w", err)
		}
		if rule == nil {
			return fmt.Errorf("rule not found: %s", args[0])
		}

		if output == "json" {
			data, _ := json.MarshalIndent(rule, "", "  ")
			fmt.Println(string(data))
			return nil
		}

		fmt.Println("\nRule Details:")
		fmt.Printf("  ID:             %s\n", rule.ID)
		fmt.Printf("  Workspace:      %s\n", rule.WorkspaceID)
		fmt.Printf("  Name:           %s\n", rule.Name)
		fmt.Printf("  Metric:         %s\n", rule.MetricType)
		fmt.Printf("  Condition:      %s %s\n", rule.ConditionType, rule.Condition)
		fmt.Printf("  Check interval: %s\n", rule.CheckInterval)
		fmt.Printf("  Cooldown:       %s\n", rule.Cooldown)
		fmt.Printf("  Severity:       %s\n", rule.Severity)
		fmt.Printf("  Notify:         %s\n", strings.Join(rule.Notify, ", "))
		fmt.Printf("  Enabled:        %t\n", rule.Enabled)
		if rule.EscalationID != "" {
			fmt.Printf("  Escalation:     %s\n", rule.EscalationID)
		}
		if rule.LastEvaluatedAt != nil {
			fmt.Printf("  Last evaluated: %s\n", rule.LastEvaluatedAt.Format("2006-01-02 15:04:05"))
		}
		if rule.LastTriggeredAt != nil {
			fmt.Printf("  Last triggered: %s\n", rule.LastTriggeredAt.Format("2006-01-02 15:04:05"))
		}

		return nil
	},
}

// ruleEnableCmd enables a rule
var ruleEnableCmd = &cobra.Command{
	Use:   "enable <rule-id>",
	Short: "Enable a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(args[0], true)
	},
}

// ruleDisableCmd disables a rule
var ruleDisableCmd = &cobra.Command{
	Use:   "disable <rule-id>",
	Short: "Disable a rule without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(args[0], false)
	},
}

// ruleValidateCmd validates a condition config offline
var ruleValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a rule condition config",
	Long: `Validate a condition config without touching the database.

Useful for checking rule definitions before submitting them via the API.

Examples:
  pulsectl rule validate --type threshold --condition '{"operator":">","threshold":90}'
  pulsectl rule validate --type pattern --condition '{"shape":"spike","window":"30m"}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conditionType, ok := models.ParseConditionType(ruleConditionType)
		if !ok {
			return fmt.Errorf("invalid condition type: %s (use: threshold, change, anomaly, pattern)", ruleConditionType)
		}

		var cfg map[string]interface{}
		if err := json.Unmarshal([]byte(ruleConditionJSON), &cfg); err != nil {
			return fmt.Errorf("parse condition JSON: %w", err)
		}

		if err := condition.ValidateConfig(conditionType, cfg); err != nil {
			return fmt.Errorf("invalid %s condition: %w", conditionType, err)
		}

		fmt.Printf("Valid %s condition.\n", conditionType)
		return nil
	},
}

func setRuleEnabled(id string, enabled bool) error {
	store, err := openDB()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	rule, err := store.Rules().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get rule: %w", err)
	}
	if rule == nil {
		return fmt.Errorf("rule not found: %s", id)
	}

	if err := store.Rules().SetEnabled(ctx, id, enabled); err != nil {
		return fmt.Errorf("update rule: %w", err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Rule %s: %s\n", state, rule.Name)
	return nil
}

func init() {
	rootCmd.AddCommand(ruleCmd)
	ruleCmd.AddCommand(ruleListCmd)
	ruleCmd.AddCommand(ruleShowCmd)
	ruleCmd.AddCommand(ruleEnableCmd)
	ruleCmd.AddCommand(ruleDisableCmd)
	ruleCmd.AddCommand(ruleValidateCmd)

	ruleListCmd.Flags().StringVar(&ruleWorkspace, "workspace", "", "workspace ID (required)")
	ruleListCmd.MarkFlagRequired("workspace")

	ruleValidateCmd.Flags().StringVar(&ruleConditionType, "type", "", "condition type (required)")
	ruleValidateCmd.Flags().StringVar(&ruleConditionJSON, "condition", "", "condition config as JSON (required)")
	ruleValidateCmd.MarkFlagRequired("type")
	ruleValidateCmd.MarkFlagRequired("condition")
}
