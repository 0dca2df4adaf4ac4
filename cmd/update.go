package cmd

import (
	"fmt"

	"github.com/marcus/nt/internal/output"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Aliases: []string{"edit"},
	Short:   "Update a note's title or body",
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

		existing, err := a.engine.Get(cmd.Context(), id)
		if err != nil {
			output.Error("update note: %v", err)
			return err
		}

		title := existing.Title
		body := existing.Body
		changed := false
		if cmd.Flags().Changed("title") {
			title, _ = cmd.Flags().GetString("title")
			changed = true
		}
		if cmd.Flags().Changed("body") {
			body, _ = cmd.Flags().GetString("body")
			changed = true
		}
		if !changed {
			return fmt.Errorf("nothing to update: pass --title and/or --body")
		}

		n, err := a.engine.Update(cmd.Context(), id, title, body)
		if err != nil {
			output.Error("update note: %v", err)
			return err
		}

		if n.Dirty {
			output.Success("updated note %d (queued for sync)", n.ID)
		} else {
			output.Success("updated note %d", n.ID)
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().String("body", "", "new body")
	rootCmd.AddCommand(updateCmd)
}
