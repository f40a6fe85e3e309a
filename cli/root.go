// Package cli implements the payclock command line: employee registry,
// clock in/out, period finalization and pay reports on top of a SQLite file.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/payclock/factory"
	"github.com/warp/payclock/store/sqlite"
	"github.com/warp/payclock/worklog"
)

// App holds what every command needs. Store and Ledger are opened by the
// root command unless they are already set (tests set them).
type App struct {
	DBPath   string
	Timezone string
	Now      worklog.Clock
	Styled   bool

	Store      *sqlite.Store
	Ledger     *worklog.Ledger
	Strategies *factory.StrategyFactory

	ownsStore bool
	dirty     bool
}

// markDirty asks the root command to save the ledger after the command ran.
func (a *App) markDirty() { a.dirty = true }

func (a *App) open(ctx context.Context) error {
	if a.Strategies == nil {
		a.Strategies = factory.NewStrategyFactory()
	}
	if a.Store == nil {
		store, err := sqlite.New(a.DBPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}
	if a.Ledger == nil {
		loc := time.UTC
		if a.Timezone != "" {
			l, err := time.LoadLocation(a.Timezone)
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", a.Timezone, err)
			}
			loc = l
		}
		a.Ledger = worklog.NewLedger(worklog.WithLocation(loc), worklog.WithClock(a.Now))
		if err := a.Ledger.Load(ctx, a.Store); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) close(ctx context.Context) error {
	if a.dirty {
		if err := a.Ledger.Save(ctx, a.Store); err != nil {
			return err
		}
		a.dirty = false
	}
	if a.ownsStore {
		a.ownsStore = false
		err := a.Store.Close()
		a.Store, a.Ledger = nil, nil
		return err
	}
	return nil
}

// NewRootCmd creates the top-level "payclock" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "payclock",
		Short:         "Employee time clock and pay period calculator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.close(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&app.DBPath, "db", orDefault(app.DBPath, "payclock.db"), "SQLite database path")
	root.PersistentFlags().StringVar(&app.Timezone, "tz", orDefault(app.Timezone, "UTC"), "Reference time zone for day boundaries")

	root.AddCommand(
		newEmployeeCmd(app),
		newClockCmd(app),
		newPeriodCmd(app),
		newPayCmd(app),
		newReportCmd(app),
		newStateCmd(app),
	)

	return root
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
