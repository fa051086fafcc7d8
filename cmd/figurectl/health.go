package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server readiness",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := newClient()

	var readyResp map[string]any
	if err := client.getJSON("/readyz", &readyResp); err != nil {
		return fmt.Errorf("server not ready: %w", err)
	}

	if outputFmt == "json" || outputFmt == "yaml" {
		return printOutput(readyResp)
	}

	status, _ := readyResp["status"].(string)
	printTable([]string{"Check", "Status"}, [][]string{{"Readiness", status}})
	return nil
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
