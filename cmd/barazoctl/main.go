// Command barazoctl is the forum core's single entrypoint, mirroring the
// teacher's components/ledger/cmd/app/main.go's config-then-logger-then-
// service shape, extended with operator subcommands the teacher splits
// across separate binaries (scripts/demo-data, components/mdz).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/barazo-forum/barazo-api/internal/config"
	"github.com/barazo-forum/barazo-api/internal/platform/ctxlog"
	"github.com/barazo-forum/barazo-api/internal/platform/zaplog"
)

func main() {
	root := &cobra.Command{
		Use:   "barazoctl",
		Short: "Operate the barazo forum core",
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newReputationCommand())
	root.AddCommand(newRepoCommand())
	root.AddCommand(newModerateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfigOrExit loads process configuration, exiting fatally on failure:
// every subcommand needs a valid config before it can do anything useful.
func loadConfigOrExit() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// newLoggerOrExit builds the process logger, mirroring the teacher's
// main.go's fatal-on-logger-init-failure guard.
func newLoggerOrExit(cfg *config.Config) ctxlog.Logger {
	logger, err := zaplog.New(cfg.EnvName, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initialize logger: %v\n", err)
		os.Exit(1)
	}

	return logger
}
