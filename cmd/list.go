package cmd

import (
	"github.com/marcus/nt/internal/output"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List notes",
	GroupID: "notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		pageSize, _ := cmd.Flags().GetInt("page-size")
		refresh, _ := cmd.Flags().GetBool("refresh")
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.engine.List(cmd.Context(), page, pageSize, refresh)
		if err != nil {
			output.Error("list notes: %v", err)
			return err
		}

		if asJSON {
			return output.JSON(result)
		}
		if len(result.Notes) == 0 {
			output.Info("no notes")
			return nil
		}
		for _, n := range result.Notes {
			output.Info("%s", output.NoteLine(n))
		}
		if result.HasNext {
			output.Info("… %d total (use --page %d for more)", result.Count, page+1)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("page-size", 20, "notes per page")
	listCmd.Flags().Bool("refresh", false, "pull this page from the server first when reachable")
	listCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}
