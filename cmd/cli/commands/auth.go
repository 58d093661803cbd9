package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// readPassword prompts on stderr. Input is hidden when stdin is a terminal.
func readPassword(prompt string, in io.Reader) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := readLine(in)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return line, nil
}

// readLine reads up to the next newline without buffering past it, so several
// prompts can share one piped stdin
func readLine(in io.Reader) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if buf[0] == '\n' {
				break
			}
			sb.WriteByte(buf[0])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return strings.TrimRight(sb.String(), "\r"), nil
}

// LoginCmd creates the login command
func LoginCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("CTICU_PASSWORD")
			}
			if password == "" {
				var err error
				if password, err = readPassword("Password: ", cmd.InOrStdin()); err != nil {
					return err
				}
			}

			// A new login replaces whatever session was stored
			if app.Session != nil {
				_ = app.EndSession()
			}

			ok, err := app.Client.Login(app.Ctx, username, password)
			if err != nil {
				return explain(err)
			}
			if !ok {
				return fmt.Errorf("invalid username or password")
			}

			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			app.Logger.Info("Logged in", zap.String("username", sess.User.Username))

			fmt.Fprintf(cmd.OutOrStdout(), "\n✓ Logged in as %s", displayName(sess.User.Name, sess.User.Username))
			if sess.User.IsAdmin() {
				fmt.Fprint(cmd.OutOrStdout(), " (admin)")
			}
			fmt.Fprintln(cmd.OutOrStdout())

			sess.RefreshBadges(app.Ctx)
			printBadges(cmd.OutOrStdout(), sess.Badges.Counts())
			return nil
		},
	}

	cmd.Flags().String("password", "", "Password (prompted when omitted; CTICU_PASSWORD is also read)")
	return cmd
}

// LogoutCmd creates the logout command
func LogoutCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EndSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}

// WhoamiCmd creates the whoami command
func WhoamiCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user and check the token with the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nUsername:    %s\n", sess.User.Username)
			if sess.User.Name != "" {
				fmt.Fprintf(out, "Name:        %s\n", sess.User.Name)
			}
			fmt.Fprintf(out, "Role:        %s\n", sess.User.Role)
			if sess.User.DoctorCode != "" {
				fmt.Fprintf(out, "Doctor code: %s\n", sess.User.DoctorCode)
			}

			if app.Client.IsAuthenticated(app.Ctx) {
				fmt.Fprintln(out, "Session:     active")
			} else {
				fmt.Fprintln(out, "Session:     not accepted by the server (log in again)")
			}
			return nil
		},
	}
}

// ChangePasswordCmd creates the changePassword command
func ChangePasswordCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "changePassword",
		Short: "Change your password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.RequireSession(); err != nil {
				return err
			}

			current, err := readPassword("Current password: ", cmd.InOrStdin())
			if err != nil {
				return err
			}
			next, err := readPassword("New password: ", cmd.InOrStdin())
			if err != nil {
				return err
			}
			confirm, err := readPassword("Confirm new password: ", cmd.InOrStdin())
			if err != nil {
				return err
			}
			if next != confirm {
				return fmt.Errorf("new passwords do not match")
			}

			ok, err := app.Client.ChangePassword(app.Ctx, current, next)
			if err != nil {
				return explain(err)
			}
			if !ok {
				return fmt.Errorf("password was not changed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Password changed")
			return nil
		},
	}
}

func displayName(name, username string) string {
	if name == "" {
		return username
	}
	return fmt.Sprintf("%s (%s)", name, username)
}
