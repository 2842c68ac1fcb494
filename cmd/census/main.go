/*
main.go - Command-line entry point

PURPOSE:
  Single-operator CLI over the census tracker. Each invocation opens the
  store, runs one command, and closes it.

COMMANDS:
  status                               Store overview
  export                               Full dump as JSON
  list [--region R]                    List districts
  add-district NAME [--region R] [--area A] [--type T]
  record DISTRICT YEAR POPULATION [--households N] [--avg-age X]
         [--income X] [--unemployment X] [--notes S]
  summary DISTRICT                     Latest-year summary
  region REGION                        Regional aggregate

GLOBAL FLAGS:
  --db        SQLite database path (default ~/.blackroad/census-tracker.db)
  --config    YAML configuration file
  --json      Render JSON instead of text
  --log-mode  quiet (default), dev, prod

EXIT CODES:
  0 success, 1 domain or usage error, 2 internal error
*/
package main

import (
	"os"
)

const (
	ExitSuccess  = 0
	ExitUser     = 1
	ExitInternal = 2
)

func main() {
	cli := newApp(os.Stdout, os.Stderr)
	err := cli.root().Execute()
	cli.close()
	if err != nil {
		cli.renderError(err)
		os.Exit(exitCode(err))
	}
}
