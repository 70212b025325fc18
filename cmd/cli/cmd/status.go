package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"epistola/pkg/api"
)

var statusCmd = &cobra.Command{
	Use:   "status [request_id]",
	Short: "Get status of a generation request",
	Long:  `Retrieve detailed status information for a generation request, including its current state (PENDING, IN_PROGRESS, COMPLETED, FAILED, CANCELLED), the rendered document id, and timestamps.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		requestID := args[0]

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the EPISTOLA_TOKEN environment variable")
			return
		}

		client := NewClient(url, token)
		request, err := client.GetRequest(requestID)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Request failed with status code: %d\n", apiErr.StatusCode)
			} else {
				cmd.Printf("Failed to send request: %v\n", err)
			}
			return
		}

		printStatus(cmd, *request)
	},
}

func printStatus(cmd *cobra.Command, request api.RequestResponse) {
	// Header with status icon
	icon := statusIcon(request.Status)
	cmd.Printf("%s %sRequest Details%s\n", icon, colorBold, colorReset)
	cmd.Println("──────────────────────────────")

	// ID
	cmd.Printf("%sID:%s          %s\n", colorDim, colorReset, request.ID)

	if request.BatchID != nil {
		cmd.Printf("%sBatch:%s       %s\n", colorDim, colorReset, *request.BatchID)
	}

	// Status with icon
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(request.Status))

	cmd.Printf("%sTemplate:%s    %s\n", colorDim, colorReset, request.TemplateID)
	cmd.Printf("%sVariant:%s     %s\n", colorDim, colorReset, request.VariantID)

	if request.Environment != nil {
		cmd.Printf("%sEnvironment:%s %s\n", colorDim, colorReset, *request.Environment)
	} else if request.VersionID != nil {
		cmd.Printf("%sVersion:%s     %s\n", colorDim, colorReset, *request.VersionID)
	}

	if request.CorrelationID != nil {
		cmd.Printf("%sCorrelation:%s %s\n", colorDim, colorReset, *request.CorrelationID)
	}

	// Document (if rendered)
	if request.DocumentID != nil {
		cmd.Printf("%sDocument:%s    %s%s%s\n", colorDim, colorReset, colorGreen, *request.DocumentID, colorReset)
	}

	// Error (if present)
	if request.Error != nil {
		cmd.Printf("%sError:%s       %s%s%s\n", colorDim, colorReset, colorRed, *request.Error, colorReset)
	}

	// Timestamps with relative time
	cmd.Printf("%sSubmitted:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(&request.CreatedAt))
	cmd.Printf("%sStarted:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(request.StartedAt))

	// Duration if both times available
	if request.StartedAt != nil && request.CompletedAt != nil {
		duration := request.CompletedAt.Sub(*request.StartedAt)
		cmd.Printf("%sFinished:%s    %s %s(%s)%s\n", colorDim, colorReset,
			formatTimeWithRelative(request.CompletedAt),
			colorCyan, formatDuration(duration), colorReset)
	} else {
		cmd.Printf("%sFinished:%s    %s\n", colorDim, colorReset, formatTimeWithRelative(request.CompletedAt))
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "COMPLETED":
		return colorGreen + "✓" + colorReset
	case "FAILED":
		return colorRed + "✗" + colorReset
	case "CANCELLED":
		return colorDim + "⊘" + colorReset
	case "IN_PROGRESS":
		return colorYellow + "⏳" + colorReset
	case "PENDING":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "COMPLETED":
		return icon + " " + colorGreen + status + colorReset
	case "FAILED":
		return icon + " " + colorRed + status + colorReset
	case "CANCELLED":
		return icon + " " + colorDim + status + colorReset
	case "IN_PROGRESS":
		return icon + " " + colorYellow + status + colorReset
	case "PENDING":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	} else {
		days := int(duration.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
