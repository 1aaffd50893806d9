package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	userID    string
	userName  string
	userRole  string
)

var rootCmd = &cobra.Command{
	Use:   "docuvaultctl",
	Short: "CLI for the docuvault server",
	Long: `docuvaultctl is a CLI for operating the docuvault document server.

It manages documents through their lifecycle (checkout, check-in, transitions),
drives approval workflows, and inspects notifications and sweep runs.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Docuvault server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User id to act as (default: from DOCUVAULT_USER env)")
	rootCmd.PersistentFlags().StringVar(&userName, "user-name", "", "Display name for the acting user")
	rootCmd.PersistentFlags().StringVar(&userRole, "role", "", "Role for the acting user (e.g. admin)")

	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(workflowsCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolvedUser returns the effective acting user id.
// Priority: --user flag > DOCUVAULT_USER env var.
func resolvedUser() string {
	if userID != "" {
		return userID
	}
	return os.Getenv("DOCUVAULT_USER")
}
