package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "Inspect and manage notifications",
}

var unreadOnly bool

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications for the acting user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		path := apiBase + "/notifications"
		if unreadOnly {
			path += "?unread=true"
		}

		var result struct {
			Notifications []struct {
				ID            string `json:"id"`
				Type          string `json:"type"`
				DocumentTitle string `json:"documentTitle"`
				Message       string `json:"message"`
				Read          bool   `json:"read"`
				CreatedAt     string `json:"createdAt"`
			} `json:"notifications"`
			TotalSize int `json:"totalSize"`
		}
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to list notifications: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Type", "Document", "Message", "Read", "At"}
		rows := make([][]string, 0, len(result.Notifications))
		for _, n := range result.Notifications {
			rows = append(rows, []string{
				truncate(n.ID, 12),
				n.Type,
				truncate(n.DocumentTitle, 30),
				truncate(n.Message, 50),
				fmt.Sprintf("%t", n.Read),
				n.CreatedAt,
			})
		}
		printTable(headers, rows)
		fmt.Printf("Total: %d\n", result.TotalSize)
		return nil
	},
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Mark a notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(apiBase+"/notifications/"+args[0]+"/read", map[string]any{}, &result); err != nil {
			return fmt.Errorf("failed to mark read: %w", err)
		}

		return printOutput(result)
	},
}

var notificationsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all notifications for the acting user",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(apiBase+"/notifications/clear", map[string]any{}, &result); err != nil {
			return fmt.Errorf("failed to clear notifications: %w", err)
		}

		return printOutput(result)
	},
}

func init() {
	notificationsListCmd.Flags().BoolVar(&unreadOnly, "unread", false, "Only show unread notifications")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	notificationsCmd.AddCommand(notificationsClearCmd)
}
