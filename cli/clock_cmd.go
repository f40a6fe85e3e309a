package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/worklog"
)

func newClockCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Clock employees in and out",
	}

	cmd.AddCommand(
		newClockInCmd(app),
		newClockOutCmd(app),
		newClockStatusCmd(app),
	)

	return cmd
}

func newClockInCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "in <employee-id>",
		Short: "Start a work session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Store.GetEmployee(cmd.Context(), args[0]); err != nil {
				return err
			}
			id := generic.EmployeeID(args[0])

			session, created := app.Ledger.ClockIn(id)
			if !created {
				fmt.Fprintf(out(cmd), "%s is already clocked in since %s\n",
					id, app.paint(styleYellow, app.localTime(session.Start)))
				return nil
			}
			app.markDirty()
			fmt.Fprintf(out(cmd), "Clocked in %s at %s\n", id, app.paint(styleGreen, app.localTime(session.Start)))
			return nil
		},
	}
}

func newClockOutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "out <employee-id>",
		Short: "End the current work session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.Store.GetEmployee(cmd.Context(), args[0]); err != nil {
				return err
			}
			id := generic.EmployeeID(args[0])

			result, closed := app.Ledger.ClockOut(id)
			if !closed {
				fmt.Fprintf(out(cmd), "%s is not clocked in\n", id)
				return nil
			}
			app.markDirty()

			closedHours := result.Closed.Hours(result.Closed.End).StringFixed(2)
			fmt.Fprintf(out(cmd), "Clocked out %s at %s (%s h)\n",
				id, app.paint(styleGreen, app.localTime(result.Closed.End)), closedHours)
			if len(result.Pieces) > 1 {
				for _, p := range result.Pieces {
					fmt.Fprintf(out(cmd), "  %s  %s h  -> %s\n",
						p.Session.StartDate(app.Ledger.Location()),
						p.Session.Hours(p.Session.End).StringFixed(2),
						placementLabel(p.Placement))
				}
			} else if len(result.Pieces) == 1 && result.Pieces[0].Placement == worklog.PlacedInLatestPeriod {
				fmt.Fprintln(out(cmd), "  filed into the latest pay period")
			}
			return nil
		},
	}
}

func newClockStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status [employee-id]",
		Short: "Show who is clocked in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id := generic.EmployeeID(args[0])
				elapsed, ok := app.Ledger.OpenSessionDuration(id)
				if !ok {
					fmt.Fprintf(out(cmd), "%s is %s\n", id, app.paint(styleDim, "not clocked in"))
					return nil
				}
				fmt.Fprintf(out(cmd), "%s has been clocked in for %s\n", id, app.paint(styleGreen, formatElapsed(elapsed)))
				return nil
			}

			open := app.Ledger.OpenSessions()
			if len(open) == 0 {
				fmt.Fprintln(out(cmd), "Nobody is clocked in.")
				return nil
			}
			now := app.Ledger.Now()
			rows := make([][]string, 0, len(open))
			for _, s := range open {
				rows = append(rows, []string{string(s.EmployeeID), app.localTime(s.Start), formatElapsed(s.Elapsed(now))})
			}
			fmt.Fprint(out(cmd), app.renderTable([]string{"EMPLOYEE", "SINCE", "ELAPSED"}, rows))
			return nil
		},
	}
}

func (a *App) localTime(t time.Time) string {
	return t.In(a.Ledger.Location()).Format("2006-01-02 15:04")
}

func placementLabel(p worklog.Placement) string {
	if p == worklog.PlacedInLatestPeriod {
		return "latest period"
	}
	return "unassigned"
}
