package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ruleloop/internal/models"
)

func newRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage learned rules",
	}

	cmd.AddCommand(
		newRulesListCmd(),
		newRulesShowCmd(),
		newRulesAddCmd(),
		newRulesEditCmd(),
		newRulesReinforceCmd(),
		newRulesToggleCmd(),
		newRulesArchiveCmd(),
		newRulesDeleteCmd(),
	)
	return cmd
}

func newRulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			userID, _ := cmd.Flags().GetString("user")
			all, _ := cmd.Flags().GetBool("all")

			var statuses []models.RuleStatus
			if !all {
				statuses = append(statuses, models.StatusActive)
			}
			rules, err := a.rules.List(cmd.Context(), userID, statuses...)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"rules": rules,
					"count": len(rules),
				})
			}

			if len(rules) == 0 {
				fmt.Println("No rules yet. Corrections made with 'ruleloop learn' will appear here.")
				return nil
			}
			fmt.Printf("Rules for %s (%d):\n\n", userID, len(rules))
			for i, r := range rules {
				fmt.Printf("%d. [%s/%s] %s\n", i+1, r.Category, r.Status, r.Content)
				fmt.Printf("   ID: %s  Confidence: %.2f  Applied: %d  Reinforced: %d\n",
					r.ID, r.Confidence, r.TimesApplied, r.TimesReinforced)
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "Include archived and disabled rules")
	return cmd
}

func newRulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <rule-id>",
		Short: "Show one rule with its audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rule, err := a.rules.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			events, err := a.rules.AuditTrail(cmd.Context(), rule.UserID, rule.ID, 20)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"rule":   rule,
					"events": events,
				})
			}

			fmt.Printf("[%s/%s] %s\n", rule.Category, rule.Status, rule.Content)
			fmt.Printf("  ID:          %s\n", rule.ID)
			fmt.Printf("  User:        %s\n", rule.UserID)
			fmt.Printf("  Confidence:  %.2f\n", rule.Confidence)
			fmt.Printf("  Applied:     %d  Reinforced: %d\n", rule.TimesApplied, rule.TimesReinforced)
			if rule.OriginalCorrection != "" {
				fmt.Printf("  Learned from: %q\n", rule.OriginalCorrection)
			}
			fmt.Printf("  Created:     %s\n", rule.CreatedAt.Format(time.RFC3339))
			if rule.LastAppliedAt != nil {
				fmt.Printf("  Last applied: %s\n", rule.LastAppliedAt.Format(time.RFC3339))
			}
			if len(events) > 0 {
				fmt.Println("\nRecent events:")
				for _, ev := range events {
					fmt.Printf("  %s  %s\n", ev.CreatedAt.Format(time.RFC3339), ev.Type)
				}
			}
			return nil
		},
	}
}

func newRulesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a rule manually",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			userID, _ := cmd.Flags().GetString("user")
			category, _ := cmd.Flags().GetString("category")

			rule, err := a.rules.Create(cmd.Context(), userID, strings.Join(args, " "), models.RuleCategory(category))
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(rule)
			}
			fmt.Printf("Added rule [%s]: %s\n  ID: %s\n", rule.Category, rule.Content, rule.ID)
			return nil
		},
	}
	cmd.Flags().String("category", "style", "Rule category (style, tone, formatting, logic, safety)")
	return cmd
}

func newRulesEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <rule-id> <content>",
		Short: "Replace a rule's content",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rule, err := a.rules.Edit(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(rule)
			}
			fmt.Printf("Updated rule %s: %s\n", rule.ID, rule.Content)
			return nil
		},
	}
}

func newRulesReinforceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reinforce <rule-id>",
		Short: "Manually reinforce a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rule, err := a.rules.Reinforce(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(rule)
			}
			fmt.Printf("Reinforced rule %s (confidence %.2f, reinforced %d times)\n",
				rule.ID, rule.Confidence, rule.TimesReinforced)
			return nil
		},
	}
}

func newRulesToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <rule-id>",
		Short: "Toggle a rule between active and disabled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rule, err := a.rules.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(rule)
			}
			fmt.Printf("Rule %s is now %s\n", rule.ID, rule.Status)
			return nil
		},
	}
}

func newRulesArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <rule-id>",
		Short: "Archive a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			rule, err := a.rules.Archive(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(rule)
			}
			fmt.Printf("Archived rule %s\n", rule.ID)
			return nil
		},
	}
}

func newRulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.rules.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]string{"deleted": args[0]})
			}
			fmt.Printf("Deleted rule %s\n", args[0])
			return nil
		},
	}
}
