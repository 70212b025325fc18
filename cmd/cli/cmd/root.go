package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "epistolactl",
	Short: "Epistolactl is a command line tool for the epistola document generation platform",
	Long: `epistolactl is the command-line interface for the Epistola asynchronous
document generation platform.

Tenants register templates (with variants, versions and themes) and submit
generation requests; workers render each request to a PDF in the background.

Common workflows:

  Submit a single generation request:
    epistolactl submit --template <template-id> --environment production --data '{"name":"Ada"}'

  Submit a batch from a file:
    epistolactl batch items.json

  Check request status:
    epistolactl status <request-id>

  Cancel a request:
    epistolactl cancel <request-id>

  List and download documents:
    epistolactl documents list
    epistolactl documents get <document-id> -o out.pdf

Configuration:
  Set the API endpoint and credentials via environment variables or a config file:
    EPISTOLA_URL      API endpoint (default: http://localhost:6161)
    EPISTOLA_TOKEN    Tenant API Token for authentication`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".epistolactl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".epistolactl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "EPISTOLA_VARNAME"
	viper.SetEnvPrefix("EPISTOLA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.epistolactl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:6161", "Epistola Controller URL")
	viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "API Token for authentication")
	viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}
