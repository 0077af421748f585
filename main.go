package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env is fine, the environment may already be populated.
	envErr := godotenv.Load()

	app := &cli.App{
		Name:  "ms-events",
		Usage: "Calendar event service with overlap checks, statistics and forecasts.",
		Before: func(c *cli.Context) error {
			if envErr != nil {
				fmt.Fprintln(os.Stderr, ".env file not found, using environment variables")
			}
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			exportCommand(),
			agendaCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "ms-events: %v\n", err)
		os.Exit(1)
	}
}
