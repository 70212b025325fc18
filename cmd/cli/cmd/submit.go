package cmd

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"epistola/pkg/api"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a single document generation request",
	Long: `Submit one generation request. The document is rendered asynchronously;
use 'epistolactl status <request-id>' to follow it.

Exactly one of --version and --environment must be given. The variant is
picked explicitly with --variant, by attribute criteria with --require /
--prefer, or defaults to the template's default variant.

Examples:
  epistolactl submit --template 6fa4... --environment production --data '{"name":"Ada"}'
  epistolactl submit --template 6fa4... --version 81c2... --data @payload.json
  epistolactl submit --template 6fa4... --environment staging --require language=de --prefer brand=acme`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		template, _ := flags.GetString("template")
		variant, _ := flags.GetString("variant")
		version, _ := flags.GetString("version")
		environment, _ := flags.GetString("environment")
		dataArg, _ := flags.GetString("data")
		filename, _ := flags.GetString("filename")
		correlationID, _ := flags.GetString("correlation-id")
		require, _ := flags.GetStringSlice("require")
		prefer, _ := flags.GetStringSlice("prefer")

		url := viper.GetString("url")
		token := viper.GetString("token")

		if token == "" {
			cmd.Println("API token not found. Please set it using the --token flag or the EPISTOLA_TOKEN environment variable")
			return
		}
		if template == "" {
			cmd.Println("Error: --template is required")
			return
		}

		data, err := readDataArg(dataArg)
		if err != nil {
			cmd.Printf("Error reading --data: %v\n", err)
			return
		}

		req := api.SubmitRequest{
			TemplateID: template,
			Data:       data,
		}
		if variant != "" {
			req.VariantID = &variant
		}
		if version != "" {
			req.VersionID = &version
		}
		if environment != "" {
			req.Environment = &environment
		}
		if filename != "" {
			req.Filename = &filename
		}
		if correlationID != "" {
			req.CorrelationID = &correlationID
		}
		if criteria := buildCriteria(require, prefer); criteria != nil {
			req.VariantCriteria = criteria
		}

		client := NewClient(url, token)
		result, err := client.Submit(req)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok {
				cmd.Printf("Submit failed (%d): %s\n", apiErr.StatusCode, apiErr.Message)
			} else {
				cmd.Printf("Submit failed: %v\n", err)
			}
			return
		}

		cmd.Printf("✓ Request submitted!\nRequest ID: %s\nStatus: %s\n", result.RequestID, result.Status)
	},
}

// readDataArg interprets a --data value: inline JSON, @file, or empty.
func readDataArg(arg string) (json.RawMessage, error) {
	if arg == "" {
		return nil, nil
	}
	if strings.HasPrefix(arg, "@") {
		content, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, err
		}
		return json.RawMessage(content), nil
	}
	return json.RawMessage(arg), nil
}

// buildCriteria turns key=value pairs into selection criteria.
func buildCriteria(require, prefer []string) *api.VariantCriteria {
	if len(require) == 0 && len(prefer) == 0 {
		return nil
	}
	criteria := &api.VariantCriteria{}
	if len(require) > 0 {
		criteria.Required = parsePairs(require)
	}
	if len(prefer) > 0 {
		criteria.Optional = parsePairs(prefer)
	}
	return criteria
}

func parsePairs(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if k, v, ok := strings.Cut(p, "="); ok {
			out[k] = v
		}
	}
	return out
}

func init() {
	flags := submitCmd.Flags()
	flags.String("template", "", "Template id (required)")
	flags.String("variant", "", "Explicit variant id")
	flags.String("version", "", "Pinned version id")
	flags.String("environment", "", "Environment name (resolved to its active version at render time)")
	flags.StringP("data", "d", "", "JSON payload, inline or @file")
	flags.String("filename", "", "Filename for the produced document")
	flags.String("correlation-id", "", "Caller-supplied correlation id")
	flags.StringSlice("require", nil, "Required variant attribute (key=value, repeatable)")
	flags.StringSlice("prefer", nil, "Preferred variant attribute (key=value, repeatable)")

	rootCmd.AddCommand(submitCmd)
}
