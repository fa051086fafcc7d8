package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const reviewAPIBase = apiBase + "/review"

var requestsStatusFilter string

// requestListPath builds a review listing path with the shared filters.
func requestListPath(resource string) string {
	path := reviewAPIBase + "/" + resource
	if requestsStatusFilter != "" {
		path += "?status=" + requestsStatusFilter
	}
	return path
}

func resolvePath(resource, id string) string {
	return fmt.Sprintf("%s/%s/%s/resolve", reviewAPIBase, resource, id)
}

var editRequestsCmd = &cobra.Command{
	Use:   "edit-requests",
	Short: "Manage proposed record edits",
}

var editRequestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List edit requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Requests []struct {
				ID            string `json:"id"`
				RecordID      string `json:"recordId"`
				Type          string `json:"type"`
				Status        string `json:"status"`
				RequestedByID string `json:"requestedById"`
				CreatedAt     string `json:"createdAt"`
			} `json:"requests"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := client.getJSON(requestListPath("edit-requests"), &result); err != nil {
			return fmt.Errorf("failed to list edit requests: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Record", "Type", "Status", "Requester", "Created"}
		rows := make([][]string, 0, len(result.Requests))
		for _, r := range result.Requests {
			rows = append(rows, []string{
				truncate(r.ID, 12),
				truncate(r.RecordID, 12),
				r.Type,
				r.Status,
				truncate(r.RequestedByID, 12),
				r.CreatedAt,
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var editRequestsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get edit request details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(fmt.Sprintf("%s/edit-requests/%s", reviewAPIBase, args[0]))
		if err != nil {
			return fmt.Errorf("failed to get edit request: %w", err)
		}

		return printOutput(result)
	},
}

var editRequestsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending edit request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(resolvePath("edit-requests", args[0]), map[string]any{"decision": "approve"}, &result); err != nil {
			return fmt.Errorf("failed to approve: %w", err)
		}

		return printOutput(result)
	},
}

var editRequestsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending edit request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(resolvePath("edit-requests", args[0]), map[string]any{"decision": "reject"}, &result); err != nil {
			return fmt.Errorf("failed to reject: %w", err)
		}

		return printOutput(result)
	},
}

var imageRequestsCmd = &cobra.Command{
	Use:   "image-requests",
	Short: "Manage proposed primary image replacements",
}

var imageRequestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List image requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Requests []struct {
				ID            string `json:"id"`
				RecordID      string `json:"recordId"`
				NewImageURL   string `json:"newImageUrl"`
				Status        string `json:"status"`
				RequestedByID string `json:"requestedById"`
				CreatedAt     string `json:"createdAt"`
			} `json:"requests"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := client.getJSON(requestListPath("image-requests"), &result); err != nil {
			return fmt.Errorf("failed to list image requests: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Record", "URL", "Status", "Requester", "Created"}
		rows := make([][]string, 0, len(result.Requests))
		for _, r := range result.Requests {
			rows = append(rows, []string{
				truncate(r.ID, 12),
				truncate(r.RecordID, 12),
				truncate(r.NewImageURL, 40),
				r.Status,
				truncate(r.RequestedByID, 12),
				r.CreatedAt,
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var imageRequestsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending image request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(resolvePath("image-requests", args[0]), map[string]any{"decision": "approve"}, &result); err != nil {
			return fmt.Errorf("failed to approve: %w", err)
		}

		return printOutput(result)
	},
}

var imageRequestsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending image request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result map[string]any
		if err := client.postJSON(resolvePath("image-requests", args[0]), map[string]any{"decision": "reject"}, &result); err != nil {
			return fmt.Errorf("failed to reject: %w", err)
		}

		return printOutput(result)
	},
}

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "Manage free-standing image submissions",
}

var submissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List image submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		var result struct {
			Submissions []struct {
				ID            string `json:"id"`
				ImageURL      string `json:"imageUrl"`
				Title         string `json:"title"`
				Status        string `json:"status"`
				SubmittedByID string `json:"submittedById"`
				CreatedAt     string `json:"createdAt"`
			} `json:"submissions"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := client.getJSON(requestListPath("image-submissions"), &result); err != nil {
			return fmt.Errorf("failed to list submissions: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "URL", "Title", "Status", "Submitter", "Created"}
		rows := make([][]string, 0, len(result.Submissions))
		for _, s := range result.Submissions {
			rows = append(rows, []string{
				truncate(s.ID, 12),
				truncate(s.ImageURL, 40),
				s.Title,
				s.Status,
				truncate(s.SubmittedByID, 12),
				s.CreatedAt,
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var (
	submissionTargetRecord string
	submissionRejectReason string
)

var submissionsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a submission, attaching it to a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"decision": "approve",
			"recordId": submissionTargetRecord,
		}

		var result map[string]any
		if err := client.postJSON(resolvePath("image-submissions", args[0]), body, &result); err != nil {
			return fmt.Errorf("failed to approve: %w", err)
		}

		return printOutput(result)
	},
}

var submissionsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		body := map[string]any{
			"decision": "reject",
			"reason":   submissionRejectReason,
		}

		var result map[string]any
		if err := client.postJSON(resolvePath("image-submissions", args[0]), body, &result); err != nil {
			return fmt.Errorf("failed to reject: %w", err)
		}

		return printOutput(result)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{editRequestsListCmd, imageRequestsListCmd, submissionsListCmd} {
		cmd.Flags().StringVar(&requestsStatusFilter, "status", "", "Filter by status (PENDING, APPROVED, REJECTED)")
	}

	submissionsApproveCmd.Flags().StringVar(&submissionTargetRecord, "record", "", "Target record id for the approved image")
	_ = submissionsApproveCmd.MarkFlagRequired("record")
	submissionsRejectCmd.Flags().StringVar(&submissionRejectReason, "reason", "", "Rejection reason")

	editRequestsCmd.AddCommand(editRequestsListCmd)
	editRequestsCmd.AddCommand(editRequestsGetCmd)
	editRequestsCmd.AddCommand(editRequestsApproveCmd)
	editRequestsCmd.AddCommand(editRequestsRejectCmd)

	imageRequestsCmd.AddCommand(imageRequestsListCmd)
	imageRequestsCmd.AddCommand(imageRequestsApproveCmd)
	imageRequestsCmd.AddCommand(imageRequestsRejectCmd)

	submissionsCmd.AddCommand(submissionsListCmd)
	submissionsCmd.AddCommand(submissionsApproveCmd)
	submissionsCmd.AddCommand(submissionsRejectCmd)

	rootCmd.AddCommand(editRequestsCmd)
	rootCmd.AddCommand(imageRequestsCmd)
	rootCmd.AddCommand(submissionsCmd)
}
