package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/marcus/nt/internal/output"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create <title> [body]",
	Aliases: []string{"new", "add"},
	Short:   "Create a note",
	Long: `Create a note. The body is the second argument, or "-" to read it
from stdin. The note is committed locally first; when the server is
unreachable the create is queued and replayed on the next sync.`,
	GroupID: "notes",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := args[0]
		body := ""
		if len(args) == 2 {
			body = args[1]
		}
		if body == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			body = strings.TrimRight(string(data), "\n")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		n, err := a.engine.Create(cmd.Context(), title, body)
		if err != nil {
			output.Error("create note: %v", err)
			return err
		}

		if n.LocalOnly {
			output.Success("created note %d (queued for sync)", n.ID)
		} else {
			output.Success("created note %d", n.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}
