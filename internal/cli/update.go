package cli

import (
	"github.com/spf13/cobra"

	"zedfx/internal/app"
)

var (
	updateDataDir    string
	updateWebDataDir string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch, process, and save FX data once",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.UpdateOptions{
			DataDir:    updateDataDir,
			WebDataDir: updateWebDataDir,
		}
		return getApp().Update(cmd.Context(), opts)
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateDataDir, "data-dir", "", "Override the backup/snapshot directory")
	updateCmd.Flags().StringVar(&updateWebDataDir, "web-data-dir", "", "Override the site data directory")
}
