package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	docsTemplateID    string
	docsCorrelationID string
	docsOutput        string
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List and download rendered documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rendered documents",
	Long:  `List rendered documents, optionally filtered by template or correlation id.`,
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the EPISTOLA_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		docs, err := client.ListDocuments(docsTemplateID, docsCorrelationID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed with status code: %d\n", apiErr.StatusCode)
			} else {
				cmd.Printf("Failed to send request: %v\n", err)
			}
			return
		}

		if len(docs) == 0 {
			cmd.Println("No documents found")
			return
		}

		for _, doc := range docs {
			correlation := "-"
			if doc.CorrelationID != nil {
				correlation = *doc.CorrelationID
			}
			cmd.Printf("%s  %-30s  %8s  %-12s  %s\n",
				doc.ID, doc.Filename, formatSize(doc.Size), correlation,
				doc.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	},
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [document_id]",
	Short: "Download a rendered document",
	Long:  `Download a rendered document's content. Writes to the document's stored filename unless -o is given.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the EPISTOLA_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)

		target := docsOutput
		if target == "" {
			doc, err := client.GetDocument(args[0])
			if err != nil {
				if apiErr, ok := err.(*APIError); ok {
					cmd.Printf("Request failed with status code: %d\n", apiErr.StatusCode)
				} else {
					cmd.Printf("Failed to send request: %v\n", err)
				}
				return
			}
			target = doc.Filename
		}

		content, err := client.GetDocumentContent(args[0])
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed with status code: %d\n", apiErr.StatusCode)
			} else {
				cmd.Printf("Failed to send request: %v\n", err)
			}
			return
		}

		if err := os.WriteFile(target, content, 0o644); err != nil {
			cmd.Printf("Failed to write %s: %v\n", target, err)
			return
		}

		cmd.Printf("✓ Wrote %s (%s)\n", target, formatSize(int64(len(content))))
	},
}

func formatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1024*1024))
	}
}

func init() {
	documentsListCmd.Flags().StringVar(&docsTemplateID, "template", "", "Filter by template id")
	documentsListCmd.Flags().StringVar(&docsCorrelationID, "correlation-id", "", "Filter by correlation id")
	documentsGetCmd.Flags().StringVarP(&docsOutput, "output", "o", "", "Output file path")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsGetCmd)
	rootCmd.AddCommand(documentsCmd)
}
