// Command assistant runs the in-car voice assistant.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the config file search
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "In-car voice assistant for nearby points of interest",
	Long: `assistant recommends charging and fuel stations, restaurants and leisure
activities near the vehicle, ranked by the driver's preferences and past
ratings.

Examples:
  # Talk to the assistant on the terminal
  assistant chat

  # Serve the HTTP API and the websocket voice gateway
  assistant serve --config config.yaml

  # Answer the preference questionnaire
  assistant prefs init`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $CONFIG_PATH or ./config.yaml)")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(prefsCmd)
}
