package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/payclock/generic"
	"github.com/warp/payclock/payroll"
	"github.com/warp/payclock/store/sqlite"
)

func newEmployeeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "employee",
		Short: "Manage employees and their pay strategy",
	}

	cmd.AddCommand(
		newEmployeeAddCmd(app),
		newEmployeeListCmd(app),
		newEmployeeSetStrategyCmd(app),
		newEmployeeRemoveCmd(app),
	)

	return cmd
}

func newEmployeeAddCmd(app *App) *cobra.Command {
	var id, kind, rate string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an employee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				id = uuid.NewString()
			}
			emp := sqlite.Employee{ID: id, Name: args[0]}
			if kind != "" {
				strategy, err := parseStrategy(kind, rate)
				if err != nil {
					return err
				}
				emp.Strategy = &strategy
			}
			if err := app.Store.SaveEmployee(cmd.Context(), emp); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Added employee %s (%s)\n", emp.Name, app.paint(styleGreen, emp.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Employee ID (generated when empty)")
	cmd.Flags().StringVar(&kind, "kind", "", "Pay strategy: hourly or salaried")
	cmd.Flags().StringVar(&rate, "rate", "", "Hourly rate or annual salary")

	return cmd
}

func newEmployeeListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			employees, err := app.Store.ListEmployees(cmd.Context())
			if err != nil {
				return err
			}
			if len(employees) == 0 {
				fmt.Fprintln(out(cmd), "No employees.")
				return nil
			}

			rows := make([][]string, 0, len(employees))
			for _, e := range employees {
				strategy, rate := "-", "-"
				if e.Strategy != nil {
					strategy, rate = string(e.Strategy.Kind), e.Strategy.Rate.StringFixed(2)
				}
				clocked := app.paint(styleDim, "no")
				if app.Ledger.IsClockedIn(generic.EmployeeID(e.ID)) {
					clocked = app.paint(styleGreen, "yes")
				}
				rows = append(rows, []string{e.ID, e.Name, strategy, rate, clocked})
			}
			fmt.Fprint(out(cmd), app.renderTable([]string{"ID", "NAME", "STRATEGY", "RATE", "CLOCKED IN"}, rows))
			return nil
		},
	}
}

func newEmployeeSetStrategyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-strategy <employee-id> <hourly|salaried> <rate>",
		Short: "Replace an employee's pay strategy",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := parseStrategy(args[1], args[2])
			if err != nil {
				return err
			}
			if err := app.Store.SetStrategy(cmd.Context(), args[0], strategy); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Set %s to %s\n", args[0], strategy)
			return nil
		},
	}
}

func newEmployeeRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <employee-id>",
		Short: "Delete an employee record (worked sessions are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Ledger.IsClockedIn(generic.EmployeeID(args[0])) {
				return fmt.Errorf("remove %s: %w", args[0], generic.ErrEmployeeClockedIn)
			}
			if err := app.Store.DeleteEmployee(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Removed employee %s\n", args[0])
			return nil
		},
	}
}

func parseStrategy(kind, rate string) (payroll.Strategy, error) {
	k, err := payroll.ParseKind(kind)
	if err != nil {
		return payroll.Strategy{}, err
	}
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return payroll.Strategy{}, fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	return payroll.NewStrategy(k, r)
}
