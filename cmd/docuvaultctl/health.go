package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	req, err := client.newRequest(http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := client.http.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	status := "unhealthy"
	if resp.StatusCode == http.StatusOK {
		status = "healthy"
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(map[string]any{
			"status":   status,
			"code":     resp.StatusCode,
			"response": string(body),
		})
	}

	printTable([]string{"Check", "Status"}, [][]string{{"Liveness", status}})
	return nil
}
