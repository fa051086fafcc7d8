package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Browse and update figure records",
}

var recordsSeriesFilter string

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List figure records",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		path := apiBase + "/records"
		if recordsSeriesFilter != "" {
			path += "?seriesId=" + recordsSeriesFilter
		}

		var result struct {
			Records []struct {
				ID           string `json:"id"`
				Name         string `json:"name"`
				SeriesID     string `json:"seriesId"`
				MaterialType string `json:"materialType"`
				CreatedAt    string `json:"createdAt"`
			} `json:"records"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := client.getJSON(path, &result); err != nil {
			return fmt.Errorf("failed to list records: %w", err)
		}

		if outputFmt == "json" || outputFmt == "yaml" {
			return printOutput(result)
		}

		headers := []string{"ID", "Name", "Series", "Material", "Created"}
		rows := make([][]string, 0, len(result.Records))
		for _, r := range result.Records {
			rows = append(rows, []string{
				truncate(r.ID, 12),
				r.Name,
				truncate(r.SeriesID, 12),
				r.MaterialType,
				r.CreatedAt,
			})
		}
		printTable(headers, rows)
		return nil
	},
}

var recordsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a figure record with its images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient()

		result, err := client.getRaw(fmt.Sprintf("%s/records/%s", apiBase, args[0]))
		if err != nil {
			return fmt.Errorf("failed to get record: %w", err)
		}

		return printOutput(result)
	},
}

func init() {
	recordsListCmd.Flags().StringVar(&recordsSeriesFilter, "series", "", "Filter by series id")

	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsGetCmd)

	rootCmd.AddCommand(recordsCmd)
}
