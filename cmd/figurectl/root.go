package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	outputFmt string
	asUser    string
	asRole    string
)

var rootCmd = &cobra.Command{
	Use:   "figurectl",
	Short: "CLI for the figure catalog server",
	Long: `figurectl talks to the figure catalog server over its HTTP API.

It covers the catalog (records, images, recommendations), the review
queues (edit requests, image requests, image submissions), and user
role management.

Identity is sent via the trusted-proxy headers. Use --as-user and
--as-role when talking to a development server directly.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Figure server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&asUser, "as-user", "", "User id to act as (default: from FIGUREDEX_USER env)")
	rootCmd.PersistentFlags().StringVar(&asRole, "as-role", "", "Role to act as (default: from FIGUREDEX_ROLE env)")
}

// resolvedUser returns the effective acting user id.
// Priority: --as-user flag > FIGUREDEX_USER env var.
func resolvedUser() string {
	if asUser != "" {
		return asUser
	}
	return os.Getenv("FIGUREDEX_USER")
}

func resolvedRole() string {
	if asRole != "" {
		return asRole
	}
	return os.Getenv("FIGUREDEX_ROLE")
}
