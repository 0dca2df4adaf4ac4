package cmd

import (
	"github.com/marcus/nt/internal/output"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a note",
	GroupID: "notes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseNoteID(args[0])
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.engine.Delete(cmd.Context(), id); err != nil {
			output.Error("delete note: %v", err)
			return err
		}
		output.Success("deleted note %d", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
