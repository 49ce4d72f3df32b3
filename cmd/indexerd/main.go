// Command indexerd is the service binary (§6 CLI surface): it loads one or
// more manifests, opens the Database Adapter, and runs the Indexer Service
// until signaled to shut down.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagDatabase     string
	flagPostgresDSN  string
	flagSQLitePath   string
	flagFuelHost     string
	flagFuelPort     int
	flagGraphQLHost  string
	flagGraphQLPort  int
	flagLogLevel     string
	flagRunMigration bool
	flagMetrics      bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "indexerd",
		Short: "Runs and administers GraphQL-schema-defined chain indexers",
	}

	root.PersistentFlags().StringVar(&flagDatabase, "database", "postgres", "database backend: postgres|sqlite")
	root.PersistentFlags().StringVar(&flagPostgresDSN, "postgres-dsn", "", "PostgreSQL connection string (postgres://...)")
	root.PersistentFlags().StringVar(&flagSQLitePath, "sqlite-path", "", "SQLite database file path")
	root.PersistentFlags().StringVar(&flagFuelHost, "fuel-node-host", "127.0.0.1", "chain node host")
	root.PersistentFlags().IntVar(&flagFuelPort, "fuel-node-port", 4000, "chain node port")
	root.PersistentFlags().StringVar(&flagGraphQLHost, "graphql-api-host", "0.0.0.0", "GraphQL API bind host")
	root.PersistentFlags().IntVar(&flagGraphQLPort, "graphql-api-port", 29987, "GraphQL API bind port")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "minimum log level (error|warn|info|debug|trace); overrides $RUST_LOG")
	root.PersistentFlags().BoolVar(&flagRunMigration, "run-migrations", false, "apply the registry bootstrap DDL before starting")
	root.PersistentFlags().BoolVar(&flagMetrics, "metrics", false, "enable per-indexer batch/cursor metrics logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newStatusCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor implements §6's exit code contract: 0 on clean shutdown,
// nonzero on unrecoverable configuration error or database unavailability
// after retry exhaustion. Every other error also exits nonzero, since cobra
// only calls this path when a command actually failed.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
