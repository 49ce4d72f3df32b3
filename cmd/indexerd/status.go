package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/syssam/indexerd/service"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List every persisted indexer and its registry state",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	adapter, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer adapter.Close()

	registry := service.NewRegistryStore(adapter, adapter.Dialect())
	rows, err := registry.LoadAll(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tIDENTIFIER\tSTATUS\tCURSOR\tSCHEMA_VERSION")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", row.Namespace, row.Identifier, row.Status, row.Cursor, row.SchemaVersion)
	}
	return w.Flush()
}
