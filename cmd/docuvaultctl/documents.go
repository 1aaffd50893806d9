package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage documents",
}

var (
	docStatusFilter   string
	docCategoryFilter string
	docCreatedBy      string
	docPageSize       int
)

type documentView struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Category       string `json:"category"`
	Status         string `json:"status"`
	Version        int    `json:"version"`
	CheckoutStatus string `json:"checkoutStatus"`
	CheckoutByName string `json:"checkoutByName"`
	CreatedBy      string `json:"createdBy"`
	CreatedAt      string `json:"createdAt"`
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		q := url.Values{}
		if docStatusFilter != "" {
			q.Set("status", docStatusFilter)
		}
		if docCategoryFilter != "" {
			q.Set("category", docCategoryFilter)
		}
		if docCreatedBy != "" {
			q.Set("createdBy", docCreatedBy)
		}
		if docPageSize > 0 {
			q.Set("pageSize", fmt.Sprintf("%d", docPageSize))
		}

		path := apiBase + "/documents"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		var result struct {
			Documents []documentView `json:"documents"`
			TotalSize int            `json:"totalSize"`
		}
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Title", "Category", "Status", "Version", "Checkout", "Created By"}
		rows := make([][]string, 0, len(result.Documents))
		for _, d := range result.Documents {
			checkout := string(d.CheckoutStatus)
			if d.CheckoutByName != "" {
				checkout = fmt.Sprintf("%s (%s)", d.CheckoutStatus, d.CheckoutByName)
			}
			rows = append(rows, []string{
				truncate(d.ID, 12),
				truncate(d.Title, 40),
				d.Category,
				d.Status,
				fmt.Sprintf("%d", d.Version),
				checkout,
				d.CreatedBy,
			})
		}
		printTable(headers, rows)
		fmt.Printf("Total: %d\n", result.TotalSize)
		return nil
	},
}

var documentsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get document details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(apiBase + "/documents/" + args[0])
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}

		return printOutput(result)
	},
}

var transitionNote string

var documentsTransitionCmd = &cobra.Command{
	Use:   "transition <id> <status>",
	Short: "Move a document to a new status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"params": map[string]any{
				"status": args[1],
				"note":   transitionNote,
			},
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/documents/"+args[0]+"/actions/transition", body, &result); err != nil {
			return fmt.Errorf("failed to transition: %w", err)
		}

		return printOutput(result)
	},
}

var documentsCheckoutCmd = &cobra.Command{
	Use:   "checkout <id>",
	Short: "Check out a document for editing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(apiBase+"/documents/"+args[0]+"/actions/checkout", map[string]any{}, &result); err != nil {
			return fmt.Errorf("failed to check out: %w", err)
		}

		return printOutput(result)
	},
}

var checkinComment string

var documentsCheckinCmd = &cobra.Command{
	Use:   "checkin <id>",
	Short: "Check in a document, creating a new version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"params": map[string]any{"comment": checkinComment},
		}

		var result map[string]any
		if err := client.postJSON(apiBase+"/documents/"+args[0]+"/actions/checkin", body, &result); err != nil {
			return fmt.Errorf("failed to check in: %w", err)
		}

		return printOutput(result)
	},
}

var documentsUnlockCmd = &cobra.Command{
	Use:   "unlock <id>",
	Short: "Force-clear a document checkout (requires the admin role)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(apiBase+"/documents/"+args[0]+"/actions/unlock", map[string]any{}, &result); err != nil {
			return fmt.Errorf("failed to unlock: %w", err)
		}

		return printOutput(result)
	},
}

var documentsActivityCmd = &cobra.Command{
	Use:   "activity <id>",
	Short: "Show a document's audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Activities []struct {
				Action    string `json:"action"`
				Actor     string `json:"actor"`
				Outcome   string `json:"outcome"`
				Detail    string `json:"detail"`
				CreatedAt string `json:"createdAt"`
			} `json:"activities"`
			TotalSize int `json:"totalSize"`
		}
		if err := client.getJSON(apiBase+"/documents/"+args[0]+"/activity", &result); err != nil {
			return fmt.Errorf("failed to get activity: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"Action", "Actor", "Outcome", "Detail", "At"}
		rows := make([][]string, 0, len(result.Activities))
		for _, a := range result.Activities {
			rows = append(rows, []string{a.Action, a.Actor, a.Outcome, truncate(a.Detail, 50), a.CreatedAt})
		}
		printTable(headers, rows)
		return nil
	},
}

func init() {
	documentsListCmd.Flags().StringVar(&docStatusFilter, "status", "", "Filter by status")
	documentsListCmd.Flags().StringVar(&docCategoryFilter, "category", "", "Filter by category")
	documentsListCmd.Flags().StringVar(&docCreatedBy, "created-by", "", "Filter by creator")
	documentsListCmd.Flags().IntVar(&docPageSize, "page-size", 0, "Page size")
	documentsTransitionCmd.Flags().StringVar(&transitionNote, "note", "", "Transition note")
	documentsCheckinCmd.Flags().StringVar(&checkinComment, "comment", "", "Check-in comment")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsTransitionCmd)
	documentsCmd.AddCommand(documentsCheckoutCmd)
	documentsCmd.AddCommand(documentsCheckinCmd)
	documentsCmd.AddCommand(documentsUnlockCmd)
	documentsCmd.AddCommand(documentsActivityCmd)
}
