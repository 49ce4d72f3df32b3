package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/service"
)

var (
	flagRemoveNamespace  string
	flagRemoveIdentifier string
	flagRemoveManifest   string
)

func newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Drop an indexer's tables and delete its registry row (§4.7 Remove)",
		RunE:  runRemove,
	}
	cmd.Flags().StringVar(&flagRemoveNamespace, "namespace", "", "indexer namespace (required)")
	cmd.Flags().StringVar(&flagRemoveIdentifier, "identifier", "", "indexer identifier (required)")
	cmd.Flags().StringVar(&flagRemoveManifest, "manifest", "", "the manifest the indexer was registered from (required, to rebuild the Schema Model the DROP statements need)")
	_ = cmd.MarkFlagRequired("namespace")
	_ = cmd.MarkFlagRequired("identifier")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

// runRemove implements the CLI-administrative form of §4.7 Remove for an
// indexer that is not currently running under a live `run` process: it
// rebuilds the Schema Model from the manifest (the registry stores no SDL),
// drops the derived tables, and deletes the registry row directly.
func runRemove(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	lb, err := loadManifestBundle(flagRemoveManifest)
	if err != nil {
		return err
	}
	if lb.mf.Namespace != flagRemoveNamespace || lb.mf.Identifier != flagRemoveIdentifier {
		return fmt.Errorf("indexerd: manifest %s/%s does not match --namespace/--identifier %s/%s", lb.mf.Namespace, lb.mf.Identifier, flagRemoveNamespace, flagRemoveIdentifier)
	}

	adapter, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer adapter.Close()
	dialect := adapter.Dialect()

	dropStatements := ddl.Drop(lb.model, dialect)
	if err := adapter.ExecDDL(ctx, dropStatements); err != nil {
		return err
	}

	registry := service.NewRegistryStore(adapter, dialect)
	if err := registry.Delete(ctx, flagRemoveNamespace, flagRemoveIdentifier); err != nil {
		return err
	}

	fmt.Printf("removed %s/%s\n", flagRemoveNamespace, flagRemoveIdentifier)
	return nil
}
