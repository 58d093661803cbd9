package commands

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (log in once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands against one session.
Swap notifications are checked before every prompt.
The session will keep running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "\n🚀 Starting interactive session...")
			fmt.Fprintln(out, "Type 'help' for available commands, 'exit' or 'quit' to leave")

			rootCmd := cmd.Root()
			return runInteractive(rootCmd, cmd.InOrStdin(), out, func() string {
				return prompt(app)
			})
		},
	}

	return cmd
}

// prompt refreshes and shows the unseen swap count when someone is signed in
func prompt(app *AppContext) string {
	if app.Session == nil || app.Session.Ended() {
		return "> "
	}
	app.Session.RefreshBadges(app.Ctx)
	if app.Session.Ended() {
		return "> "
	}
	if n := app.Session.Badges.Counts().Swap; n > 0 {
		return fmt.Sprintf("[%s 🔔%d] > ", app.Session.User.Username, n)
	}
	return fmt.Sprintf("[%s] > ", app.Session.User.Username)
}

func runInteractive(rootCmd *cobra.Command, in io.Reader, out io.Writer, promptFn func() string) error {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, promptFn())

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// Parse command (respecting quotes)
		parts, err := parseCommandLine(line)
		if err != nil {
			fmt.Fprintf(out, "❌ Error parsing command: %v\n\n", err)
			continue
		}
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			fmt.Fprintln(out, "👋 Goodbye!")
			return nil
		case "help":
			printInteractiveHelp(out, rootCmd)
			continue
		case "interactive", "completion":
			fmt.Fprintf(out, "❌ %s is not available here\n\n", parts[0])
			continue
		}

		// Find resolves nested commands such as "swaps approve 12"
		targetCmd, cmdArgs, err := rootCmd.Find(parts)
		if err != nil || targetCmd == rootCmd {
			fmt.Fprintf(out, "❌ Unknown command: %s (type 'help' for available commands)\n\n", parts[0])
			continue
		}
		if targetCmd.RunE == nil && targetCmd.Run == nil {
			fmt.Fprintf(out, "❌ %s needs a subcommand:\n", targetCmd.Name())
			printSubcommands(out, targetCmd)
			continue
		}

		// Reset command flags and args
		targetCmd.Flags().VisitAll(func(flag *pflag.Flag) {
			flag.Changed = false
			if sv, ok := flag.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
				return
			}
			_ = flag.Value.Set(flag.DefValue)
		})

		// Execute the command's RunE directly, bypassing the full Execute() flow
		// This avoids re-running PersistentPreRunE which would initialise the app again
		if err := targetCmd.ParseFlags(cmdArgs); err != nil {
			fmt.Fprintf(out, "❌ Error parsing flags: %v\n\n", err)
			continue
		}

		// Get non-flag args after parsing flags
		cmdArgs = targetCmd.Flags().Args()

		if targetCmd.Args != nil {
			if err := targetCmd.Args(targetCmd, cmdArgs); err != nil {
				fmt.Fprintf(out, "❌ Error: %v\n\n", err)
				continue
			}
		}

		targetCmd.SetOut(out)
		if targetCmd.RunE != nil {
			if err := targetCmd.RunE(targetCmd, cmdArgs); err != nil {
				fmt.Fprintf(out, "❌ Error: %v\n\n", err)
			}
		} else {
			targetCmd.Run(targetCmd, cmdArgs)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}

func printInteractiveHelp(out io.Writer, rootCmd *cobra.Command) {
	fmt.Fprintln(out, "\nAvailable commands:")

	for _, cmd := range sortedCommands(rootCmd) {
		if cmd.Name() == "interactive" || cmd.Name() == "completion" || cmd.Name() == "help" {
			continue
		}
		fmt.Fprintf(out, "  %-36s %s\n", cmd.Use, cmd.Short)
		for _, sub := range sortedCommands(cmd) {
			fmt.Fprintf(out, "    %-34s %s\n", sub.Use, sub.Short)
		}
	}

	fmt.Fprintln(out, "\n  help                                 Show this help message")
	fmt.Fprintln(out, "  exit, quit                           Exit the interactive session")
}

func printSubcommands(out io.Writer, cmd *cobra.Command) {
	for _, sub := range sortedCommands(cmd) {
		fmt.Fprintf(out, "  %s %-30s %s\n", cmd.Name(), sub.Use, sub.Short)
	}
	fmt.Fprintln(out)
}

func sortedCommands(cmd *cobra.Command) []*cobra.Command {
	cmds := append([]*cobra.Command(nil), cmd.Commands()...)
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })
	return cmds
}

// parseCommandLine splits a command line into arguments, respecting quoted strings
// Supports both single and double quotes
func parseCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var inQuote rune // 0 if not in quote, '"' or '\'' if in quote

	for _, r := range line {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
		case unicode.IsSpace(r):
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}

	if inQuote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", inQuote)
	}

	if current.Len() > 0 {
		args = append(args, current.String())
	}

	return args, nil
}
