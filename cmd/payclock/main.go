package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/warp/payclock/cli"
)

func main() {
	app := &cli.App{
		Styled: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
	}
	app.DBPath = os.Getenv("PAYCLOCK_DB_PATH")
	app.Timezone = os.Getenv("PAYCLOCK_TIMEZONE")

	root := cli.NewRootCmd(app)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
