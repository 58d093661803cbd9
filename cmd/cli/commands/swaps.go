package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cticu/cticu-schedule/pkg/core/model"
	"github.com/cticu/cticu-schedule/pkg/core/services"
	"github.com/cticu/cticu-schedule/pkg/core/session"
)

// parseShiftChange reads "date:shift:from:to", e.g. "2026-11-03:Night:A1:B1"
func parseShiftChange(raw string) (model.ShiftChange, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 4 {
		return model.ShiftChange{}, fmt.Errorf("shift must be date:type:from:to, got: %s", raw)
	}
	st, ok := model.ParseShiftType(parts[1])
	if !ok {
		return model.ShiftChange{}, fmt.Errorf("unknown shift type %q", parts[1])
	}
	return model.ShiftChange{
		Date:       parts[0],
		ShiftType:  st,
		FromDoctor: strings.ToUpper(parts[2]),
		ToDoctor:   strings.ToUpper(parts[3]),
	}, nil
}

func parseRequestID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("request id must be a positive number, got: %s", arg)
	}
	return id, nil
}

// SwapsCmd creates the swaps command and its subcommands
func SwapsCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swaps",
		Short: "Shift swap requests",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show swap requests and mark them as seen",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			rawView, _ := cmd.Flags().GetString("view")
			if rawView == "" {
				rawView = string(services.ViewMine)
				if sess.User.IsAdmin() {
					rawView = string(services.ViewAdmin)
				}
			}
			view, err := services.ParseSwapView(rawView)
			if err != nil {
				return err
			}

			inbox, err := services.OpenSwapInbox(app.Ctx, app.Client, sess, view, app.Logger)
			if err != nil {
				return explain(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nSwap requests (%s view): %d\n\n", view, len(inbox.Requests))
			for _, r := range inbox.Requests {
				fmt.Fprintln(out, formatRequest(r, inbox.Unseen[r.ID]))
			}
			printBadges(out, inbox.Badges)
			return nil
		},
	}
	list.Flags().String("view", "", "mine or admin (defaults by role)")

	create := &cobra.Command{
		Use:   "create --shift date:type:from:to [--shift ...]",
		Short: "Propose a swap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			rawShifts, _ := cmd.Flags().GetStringArray("shift")
			notes, _ := cmd.Flags().GetString("notes")

			req := model.NewShiftChangeRequest{Notes: notes}
			for _, raw := range rawShifts {
				sc, err := parseShiftChange(raw)
				if err != nil {
					return err
				}
				req.Shifts = append(req.Shifts, sc)
			}

			if err := services.CreateSwapRequest(app.Ctx, app.Client, sess, req, app.Logger); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Swap request submitted (%d shift(s))\n", len(req.Shifts))
			return nil
		},
	}
	create.Flags().StringArray("shift", nil, "Shift to swap as date:type:from:to (repeatable)")
	create.Flags().String("notes", "", "Note for the reviewer")

	cmd.AddCommand(
		list,
		create,
		resolveCmd(app, "approve", "Approve a pending request (admins)", services.ApproveSwapRequest),
		resolveCmd(app, "deny", "Deny a pending request (admins)", services.DenySwapRequest),
		resolveCmd(app, "ack", "Dismiss a completed request", services.AcknowledgeSwapRequest),
	)
	return cmd
}

type swapAction func(ctx context.Context, client services.SwapClient, sess *session.Session, id int64, logger *zap.Logger) error

func resolveCmd(app *AppContext, name, short string, action swapAction) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := app.RequireSession()
			if err != nil {
				return err
			}
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}

			if err := action(app.Ctx, app.Client, sess, id, app.Logger); err != nil {
				return explain(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Request #%d: %s done\n", id, name)
			return nil
		},
	}
}
