package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage users and roles",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Users []struct {
				ID        string `json:"id"`
				Name      string `json:"name"`
				Email     string `json:"email"`
				Role      string `json:"role"`
				CreatedAt string `json:"createdAt"`
			} `json:"users"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := client.getJSON(apiBase+"/users", &result); err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Name", "Email", "Role", "Created"}
		rows := make([][]string, 0, len(result.Users))
		for _, u := range result.Users {
			rows = append(rows, []string{
				truncate(u.ID, 12),
				u.Name,
				u.Email,
				u.Role,
				u.CreatedAt,
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var usersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get user details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(fmt.Sprintf("%s/users/%s", apiBase, args[0]))
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}

		return printOutput(result)
	},
}

var usersSetRoleCmd = &cobra.Command{
	Use:   "set-role <id> <role>",
	Short: "Assign a role to a user (USER or ADMIN)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{"role": args[1]}

		var result map[string]any
		if err := client.patchJSON(fmt.Sprintf("%s/users/%s/role", apiBase, args[0]), body, &result); err != nil {
			return fmt.Errorf("failed to set role: %w", err)
		}

		return printOutput(result)
	},
}

var usersBootstrapOwnerCmd = &cobra.Command{
	Use:   "bootstrap-owner",
	Short: "Promote the acting user to OWNER if no owner exists yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(apiBase+"/users/bootstrap-owner", map[string]any{}, &result); err != nil {
			return fmt.Errorf("failed to bootstrap owner: %w", err)
		}

		return printOutput(result)
	},
}

func init() {
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersGetCmd)
	usersCmd.AddCommand(usersSetRoleCmd)
	usersCmd.AddCommand(usersBootstrapOwnerCmd)

	rootCmd.AddCommand(usersCmd)
}
