package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/warp/payclock/factory"
	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/payroll"
	"github.com/warp/payclock/store/jsonfile"
	"github.com/warp/payclock/worklog"
)

func newPeriodCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Finalize and list pay periods",
	}

	cmd.AddCommand(
		newPeriodFinalizeCmd(app),
		newPeriodListCmd(app),
	)

	return cmd
}

func newPeriodFinalizeCmd(app *App) *cobra.Command {
	var start, end string
	var withinRange, next bool

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Move unassigned sessions into a new pay period",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := finalizeRange(app, start, end, next)
			if err != nil {
				return err
			}

			var opts []worklog.FinalizeOption
			if withinRange {
				opts = append(opts, worklog.WithinRangeOnly())
			}
			period, err := app.Ledger.FinalizePeriod(rng.Start, rng.End, opts...)
			if err != nil {
				return err
			}
			app.markDirty()

			fmt.Fprintf(out(cmd), "Finalized %s with %d sessions (%d still unassigned)\n",
				app.paint(styleGreen, period.Range().String()), len(period.Sessions()), len(app.Ledger.Unassigned()))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "First day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Last day of the period (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&next, "next", false, "Finalize the period following the latest one, with the same length")
	cmd.Flags().BoolVar(&withinRange, "within-range", false, "Leave sessions outside the period in the pool")
	cmd.MarkFlagsMutuallyExclusive("next", "start")
	cmd.MarkFlagsMutuallyExclusive("next", "end")

	return cmd
}

func finalizeRange(app *App, start, end string, next bool) (generic.DateRange, error) {
	if next {
		latest, ok := app.Ledger.Latest()
		if !ok {
			return generic.DateRange{}, fmt.Errorf("--next needs a finalized period to follow")
		}
		return latest.Range().Next(), nil
	}
	if start == "" || end == "" {
		return generic.DateRange{}, fmt.Errorf("--start and --end are required unless --next is set")
	}
	s, err := generic.ParseDate(start)
	if err != nil {
		return generic.DateRange{}, fmt.Errorf("invalid --start: %w", err)
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.DateRange{}, fmt.Errorf("invalid --end: %w", err)
	}
	return generic.DateRange{Start: s, End: e}, nil
}

func newPeriodListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List finalized pay periods, latest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			periods := app.Ledger.Periods()
			if len(periods) == 0 {
				fmt.Fprintf(out(cmd), "No pay periods. %d unassigned sessions.\n", len(app.Ledger.Unassigned()))
				return nil
			}
			rows := make([][]string, 0, len(periods))
			for i, p := range periods {
				ids := p.Employees()
				names := make([]string, len(ids))
				for j, id := range ids {
					names[j] = string(id)
				}
				rows = append(rows, []string{
					strconv.Itoa(i),
					p.Start().String(),
					p.End().String(),
					strconv.Itoa(len(p.Sessions())),
					strings.Join(names, ","),
				})
			}
			fmt.Fprint(out(cmd), app.renderTable([]string{"#", "START", "END", "SESSIONS", "EMPLOYEES"}, rows))
			return nil
		},
	}
}

func newPayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "pay <period-index> <employee-id>",
		Short: "Compute an employee's pay for a period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := app.period(args[0])
			if err != nil {
				return err
			}
			emp, err := app.Store.GetEmployee(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if emp.Strategy == nil {
				return fmt.Errorf("employee %s has no pay strategy", emp.ID)
			}

			id := generic.EmployeeID(emp.ID)
			pay := payroll.Calculate(*emp.Strategy, period, id)
			style := styleGreen
			if pay.IsNegative() {
				style = styleRed
			}
			fmt.Fprintf(out(cmd), "%s  %s  %s h  %s\n",
				emp.ID, emp.Strategy, period.HoursWorked(id).StringFixed(2),
				app.paint(style, pay.StringFixed(2)))
			return nil
		},
	}
}

func newReportCmd(app *App) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "report <period-index>",
		Short: "Pay report for every employee in a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := app.period(args[0])
			if err != nil {
				return err
			}
			strategies, err := app.Store.Strategies(cmd.Context())
			if err != nil {
				return err
			}
			rows := payroll.Report(period, strategies)

			if asCSV {
				return gocsv.Marshal(&rows, out(cmd))
			}
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				table = append(table, []string{r.EmployeeID, r.Strategy, r.Rate, r.Hours, r.Pay})
			}
			fmt.Fprintf(out(cmd), "Pay period %s\n", period.Range())
			fmt.Fprint(out(cmd), app.renderTable([]string{"EMPLOYEE", "STRATEGY", "RATE", "HOURS", "PAY"}, table))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write CSV instead of a table")

	return cmd
}

func newStateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect the persisted ledger",
	}

	var file string
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the ledger as a snapshot document, or write it to --file",
		RunE: func(cmd *cobra.Command, args []string) error {
			state := app.Ledger.Export()
			if file != "" {
				if err := jsonfile.New(file).SaveState(cmd.Context(), state); err != nil {
					return err
				}
				fmt.Fprintf(out(cmd), "Wrote snapshot to %s\n", file)
				return nil
			}
			data, err := factory.EncodeState(state)
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), string(data))
			return nil
		},
	}
	export.Flags().StringVar(&file, "file", "", "Snapshot file to write")

	cmd.AddCommand(export, &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the ledger with a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Ledger.Load(cmd.Context(), jsonfile.New(args[0], jsonfile.MustExist())); err != nil {
				return err
			}
			app.markDirty()
			fmt.Fprintf(out(cmd), "Imported %d open, %d unassigned sessions and %d pay periods\n",
				len(app.Ledger.OpenSessions()), len(app.Ledger.Unassigned()), len(app.Ledger.Periods()))
			return nil
		},
	})

	return cmd
}

func (a *App) period(arg string) (*worklog.PayPeriod, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid period index %q", arg)
	}
	return a.Ledger.Period(index)
}
