package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/marcus/nt/internal/output"
	"github.com/marcus/nt/internal/remote"
	"github.com/marcus/nt/internal/syncconfig"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage the server session",
	GroupID: "system",
}

var authLoginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in to the notes server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := args[0]

		password := os.Getenv("NT_PASSWORD")
		if password == "" {
			fmt.Fprint(os.Stderr, "password: ")
			if term.IsTerminal(int(os.Stdin.Fd())) {
				data, err := term.ReadPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(os.Stderr)
				if err != nil {
					return err
				}
				password = string(data)
			} else {
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return err
				}
				password = strings.TrimRight(line, "\n")
			}
		}

		client := remote.New(syncconfig.GetServerURL(), "")
		resp, err := client.Login(cmd.Context(), username, password)
		if err != nil {
			output.Error("login: %v", err)
			return err
		}

		if err := syncconfig.SaveAuth(&syncconfig.AuthCredentials{
			Token:    resp.Token,
			Username: resp.User,
		}); err != nil {
			return err
		}
		output.Success("logged in as %s", username)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncconfig.IsAuthenticated() {
			client := remote.New(syncconfig.GetServerURL(), syncconfig.GetToken())
			if err := client.Logout(cmd.Context()); err != nil {
				// clearing local credentials still logs us out effectively
				output.Warning("server logout failed: %v", err)
			}
		}
		if err := syncconfig.ClearAuth(); err != nil {
			return err
		}
		output.Success("logged out")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := syncconfig.LoadAuth()
		if err != nil {
			return err
		}
		if creds == nil || creds.Token == "" {
			output.Info("not logged in")
			return nil
		}
		output.Info("logged in as %s (%s)", creds.Username, syncconfig.GetServerURL())
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
