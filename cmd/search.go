package cmd

import (
	"github.com/marcus/nt/internal/output"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Search notes by title or body",
	GroupID: "notes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.engine.Search(cmd.Context(), args[0], page, pageSize)
		if err != nil {
			output.Error("search notes: %v", err)
			return err
		}

		if asJSON {
			return output.JSON(result)
		}
		if len(result.Notes) == 0 {
			output.Info("no matches")
			return nil
		}
		for _, n := range result.Notes {
			output.Info("%s", output.NoteLine(n))
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("page", 1, "page number")
	searchCmd.Flags().Int("page-size", 20, "notes per page")
	searchCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(searchCmd)
}
