package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"epistola/pkg/api"
)

var batchCmd = &cobra.Command{
	Use:   "batch [items.json]",
	Short: "Submit a batch of generation requests",
	Long: `Submit a batch of generation requests from a JSON file.

The file holds an array of submission items in the same shape as the
'submit' request body:

  [
    {"template_id": "6fa4...", "environment": "production",
     "data": {"name": "Ada"}, "correlation_id": "inv-1"},
    {"template_id": "6fa4...", "environment": "production",
     "data": {"name": "Grace"}, "correlation_id": "inv-2"}
  ]

Batches are atomic: if any item is invalid (including duplicate
correlation ids or filenames within the batch), nothing is enqueued.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the EPISTOLA_TOKEN environment variable")
			return
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			cmd.Printf("Failed to read %s: %v\n", args[0], err)
			return
		}

		var items []api.SubmitRequest
		if err := json.Unmarshal(content, &items); err != nil {
			cmd.Printf("Invalid items file: %v\n", err)
			return
		}

		client := NewClient(url, token)
		result, err := client.SubmitBatch(api.SubmitBatchRequest{Items: items})
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Batch failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Batch failed: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Batch submitted!\nBatch ID: %s\nRequests: %d\n", result.BatchID, result.Count)
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
