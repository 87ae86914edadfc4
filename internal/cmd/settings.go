package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antelabs/bodyshop/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage backend credentials",
}

var settingsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import backend credentials from a YAML or JSON file",
	Long: `Import backend credentials and replace the persisted settings blob.

The settings record is replaced wholesale, matching how the app treats
settings everywhere: loaded at startup, saved as a unit, never patched
field by field.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.LoadSettingsFile(args[0])
		if err != nil {
			return err
		}
		if err := localStore.SaveSettings(settings); err != nil {
			return err
		}
		fmt.Printf("Settings saved to %s\n", localStore.RootDir())
		return nil
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings (credentials redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := effectiveSettings()
		if err != nil {
			return err
		}
		fmt.Printf("Firestore project:  %s\n", orUnset(settings.Firestore.ProjectID))
		fmt.Printf("Firestore API key:  %s\n", redact(settings.Firestore.APIKey))
		fmt.Printf("Spreadsheet id:     %s\n", orUnset(settings.Sheets.SpreadsheetID))
		fmt.Printf("Sheets token:       %s\n", redact(settings.Sheets.AccessToken))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsImportCmd)
	settingsCmd.AddCommand(settingsShowCmd)
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func redact(s string) string {
	if s == "" {
		return "(unset)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "…" + s[len(s)-4:]
}
