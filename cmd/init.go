package cmd

import (
	"github.com/marcus/nt/internal/db"
	"github.com/marcus/nt/internal/output"
	"github.com/marcus/nt/internal/syncconfig"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create the local notes database",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := syncconfig.DataDir()
		if err != nil {
			return err
		}
		database, err := db.Initialize(dir)
		if err != nil {
			return err
		}
		defer database.Close()

		output.Success("initialized notes database in %s", dir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
