package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/ruleloop/internal/models"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message with the user's learned rules applied",
		Long: `Send one chat message. The user's active rules are ranked by
confidence and relevance, trimmed to the token budget, and injected into
the system prompt before generation.

Example:
  ruleloop chat "summarize this week's standup notes"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireProvider(); err != nil {
				return err
			}

			userID, _ := cmd.Flags().GetString("user")
			conversationID, _ := cmd.Flags().GetString("conversation")
			message := strings.Join(args, " ")

			result, err := a.interactions.Chat(cmd.Context(), userID, conversationID, message)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"interaction_id": result.InteractionID,
					"response":       result.Response,
					"rules_applied":  result.RulesApplied,
				})
			}

			fmt.Println(result.Response)
			if len(result.RulesApplied) > 0 {
				fmt.Fprintf(os.Stderr, "\n(%d rules applied, interaction %s)\n",
					len(result.RulesApplied), result.InteractionID)
			} else {
				fmt.Fprintf(os.Stderr, "\n(interaction %s)\n", result.InteractionID)
			}
			return nil
		},
	}

	cmd.Flags().String("conversation", "", "Conversation ID to group interactions")
	return cmd
}

func newLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn [correction]",
		Short: "Learn a rule from a correction of a previous response",
		Long: `Process a correction: detect whether it corrects the previous
response, extract a generalized rule, and either store it or reinforce the
existing rule it duplicates.

Without --interaction the correction applies to the user's most recent
interaction.

Example:
  ruleloop learn "please stop using bullet points"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.requireProvider(); err != nil {
				return err
			}

			userID, _ := cmd.Flags().GetString("user")
			interactionID, _ := cmd.Flags().GetString("interaction")
			correction := strings.Join(args, " ")

			if interactionID == "" {
				recent, listErr := a.store.ListInteractions(cmd.Context(), userID, 1)
				if listErr != nil {
					return listErr
				}
				if len(recent) == 0 {
					return fmt.Errorf("no interactions for user %s: run 'ruleloop chat' first or pass --interaction", userID)
				}
				interactionID = recent[0].ID
			}

			result, err := a.interactions.Feedback(cmd.Context(), userID, interactionID, correction)
			if err != nil {
				return err
			}

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return json.NewEncoder(os.Stdout).Encode(result)
			}

			switch result.Status {
			case models.ExtractionRuleCreated:
				fmt.Printf("Learned new rule [%s]: %s\n", result.Rule.Category, result.Rule.Content)
				fmt.Printf("  ID: %s  Confidence: %.2f\n", result.Rule.ID, result.Rule.Confidence)
			case models.ExtractionDuplicateFound:
				fmt.Printf("Reinforced existing rule: %s\n", result.Existing.Content)
				fmt.Printf("  ID: %s  Confidence: %.2f  Reinforced: %d times\n",
					result.Existing.ID, result.Existing.Confidence, result.Existing.TimesReinforced)
			case models.ExtractionFailed:
				fmt.Println("Could not extract a clear rule from this correction.")
			case models.ExtractionNotACorrection:
				fmt.Println("That message was not judged to be a correction.")
			}
			return nil
		},
	}

	cmd.Flags().String("interaction", "", "Interaction being corrected (default: most recent)")
	return cmd
}
