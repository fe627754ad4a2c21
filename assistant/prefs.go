package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/assistant/internal/onboarding"
	"github.com/xiaot623/gogo/assistant/internal/repository"
)

var prefsForce bool

func init() {
	prefsInitCmd.Flags().BoolVarP(&prefsForce, "force", "f", false, "overwrite existing preferences")
	prefsCmd.AddCommand(prefsInitCmd)
	prefsCmd.AddCommand(prefsShowCmd)
}

// prefsCmd groups the preference commands
var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage the driver's preferences",
}

var prefsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Answer the preference questionnaire",
	Long: `Ask the preference questions for stations, restaurants and hobbies and
store the answers in the preferences file.

Examples:
  # Create the preferences
  assistant prefs init

  # Start over, dropping the history
  assistant prefs init --force`,
	Args: cobra.NoArgs,
	RunE: runPrefsInit,
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored preferences",
	Args:  cobra.NoArgs,
	RunE:  runPrefsShow,
}

func preferencesFile() (*repository.PreferencesFile, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	_ = logger.Sync()
	return repository.NewPreferencesFile(cfg.Storage.PreferencesPath), nil
}

func runPrefsInit(cmd *cobra.Command, args []string) error {
	file, err := preferencesFile()
	if err != nil {
		return err
	}
	if !file.IsEmpty() && !prefsForce {
		return fmt.Errorf("preferences already exist at %s (use --force to overwrite)", file.Path())
	}

	prefs, err := onboarding.NewQuestionnaire(cmd.InOrStdin(), cmd.OutOrStdout()).Run()
	if err != nil {
		return err
	}
	if err := file.Save(context.Background(), prefs); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nPreferences saved to %s\n", file.Path())
	return nil
}

func runPrefsShow(cmd *cobra.Command, args []string) error {
	file, err := preferencesFile()
	if err != nil {
		return err
	}
	prefs, err := file.Load(context.Background())
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
