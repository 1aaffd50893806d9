package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "Manage approval workflows",
}

var workflowsDefinitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "List loaded workflow definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Workflows []struct {
				Name          string `json:"name"`
				Description   string `json:"description"`
				PendingStatus string `json:"pendingStatus"`
				Steps         []struct {
					Name          string   `json:"name"`
					Approvers     []string `json:"approvers"`
					RequiredCount int      `json:"requiredCount"`
					IsFinal       bool     `json:"isFinal"`
				} `json:"steps"`
			} `json:"workflows"`
		}
		if err := client.getJSON(apiBase+"/workflows/definitions", &result); err != nil {
			return fmt.Errorf("failed to list definitions: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"Name", "Pending Status", "Steps", "Description"}
		rows := make([][]string, 0, len(result.Workflows))
		for _, w := range result.Workflows {
			rows = append(rows, []string{
				w.Name,
				w.PendingStatus,
				fmt.Sprintf("%d", len(w.Steps)),
				truncate(w.Description, 50),
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var startWorkflowName string

var workflowsStartCmd = &cobra.Command{
	Use:   "start <document-id>",
	Short: "Start a workflow for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"documentId": args[0],
			"workflow":   startWorkflowName,
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/workflows/instances", body, &result); err != nil {
			return fmt.Errorf("failed to start workflow: %w", err)
		}

		return printOutput(result)
	},
}

var workflowsGetCmd = &cobra.Command{
	Use:   "get <instance-id>",
	Short: "Get a workflow instance and its decision history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/workflows/instances/" + args[0])
		if err != nil {
			return fmt.Errorf("failed to get workflow instance: %w", err)
		}

		return printOutput(result)
	},
}

var (
	decisionStep    int
	decisionComment string
)

var workflowsApproveCmd = &cobra.Command{
	Use:   "approve <instance-id>",
	Short: "Approve the current step of a workflow instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitDecision(args[0], "approve")
	},
}

var workflowsRejectCmd = &cobra.Command{
	Use:   "reject <instance-id>",
	Short: "Reject the current step of a workflow instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return submitDecision(args[0], "reject")
	},
}

func submitDecision(instanceID, verdict string) error {
	client := newClient()

	body := map[string]any{
		"stepIndex": decisionStep,
		"verdict":   verdict,
		"comment":   decisionComment,
	}

	var result map[string]any
	if err := client.postJSON(apiBase+"/workflows/instances/"+instanceID+"/decisions", body, &result); err != nil {
		return fmt.Errorf("failed to submit decision: %w", err)
	}

	return printOutput(result)
}

func init() {
	workflowsStartCmd.Flags().StringVar(&startWorkflowName, "workflow", "", "Workflow definition name")
	_ = workflowsStartCmd.MarkFlagRequired("workflow")

	workflowsApproveCmd.Flags().IntVar(&decisionStep, "step", 0, "Step index the decision targets")
	workflowsApproveCmd.Flags().StringVar(&decisionComment, "comment", "", "Decision comment")
	workflowsRejectCmd.Flags().IntVar(&decisionStep, "step", 0, "Step index the decision targets")
	workflowsRejectCmd.Flags().StringVar(&decisionComment, "comment", "", "Decision comment")

	workflowsCmd.AddCommand(workflowsDefinitionsCmd)
	workflowsCmd.AddCommand(workflowsStartCmd)
	workflowsCmd.AddCommand(workflowsGetCmd)
	workflowsCmd.AddCommand(workflowsApproveCmd)
	workflowsCmd.AddCommand(workflowsRejectCmd)
}
