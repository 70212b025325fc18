package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [request_id]",
	Short: "Cancel a generation request",
	Long: `Cancel a pending or in-progress generation request.

A pending request is cancelled immediately. An in-progress request is
marked cancelled and any output the worker produces is discarded. A
request that already finished cannot be cancelled.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the EPISTOLA_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		result, err := client.Cancel(args[0])
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed with status code: %d\n", apiErr.StatusCode)
			} else {
				cmd.Printf("Failed to send request: %v\n", err)
			}
			return
		}

		if result.Cancelled {
			cmd.Println("✓ Request cancelled")
		} else {
			cmd.Println("Request already finished, nothing to cancel")
		}
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}
