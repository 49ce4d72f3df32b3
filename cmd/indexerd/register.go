package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/schema"
	"github.com/syssam/indexerd/service"
)

var (
	flagRegisterManifest string
	flagMigrationsDir    string
)

func newRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Validate a manifest, emit its DDL, and persist a registry row without starting ingestion",
		RunE:  runRegister,
	}
	cmd.Flags().StringVar(&flagRegisterManifest, "manifest", "", "manifest file to register (required)")
	cmd.Flags().StringVar(&flagMigrationsDir, "migrations-dir", "migrations", "directory to record this indexer's DDL as a versioned migration file")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	lb, err := loadManifestBundle(flagRegisterManifest)
	if err != nil {
		return err
	}

	adapter, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer adapter.Close()
	dialect := adapter.Dialect()

	statements, err := ddl.Build(lb.model, dialect)
	if err != nil {
		return err
	}

	version := schema.Version(lb.sdlSource)
	if flagMigrationsDir != "" {
		migDir, err := ddl.LocalDir(flagMigrationsDir)
		if err != nil {
			return indexerd.NewError(indexerd.KindConfiguration, "cmd.runRegister", "opening --migrations-dir", err)
		}
		name := fmt.Sprintf("%s_%s_%s", lb.mf.Namespace, lb.mf.Identifier, version)
		if err := ddl.WriteMigration(migDir, name, statements); err != nil {
			return indexerd.NewError(indexerd.KindConfiguration, "cmd.runRegister", "recording migration file", err)
		}
	}

	if err := adapter.ExecDDL(ctx, statements); err != nil {
		return err
	}

	var start uint64
	if lb.mf.StartBlock != nil {
		start = *lb.mf.StartBlock
	}
	registry := service.NewRegistryStore(adapter, dialect)
	if err := registry.Insert(ctx, service.Row{
		Namespace:     lb.mf.Namespace,
		Identifier:    lb.mf.Identifier,
		SchemaVersion: version,
		ModuleBytes:   lb.moduleBytes,
		Cursor:        start,
		StartBlock:    start,
		EndBlock:      lb.mf.EndBlock,
		Status:        indexerd.StatusRegistered,
	}); err != nil {
		return err
	}

	fmt.Printf("registered %s/%s at schema version %s\n", lb.mf.Namespace, lb.mf.Identifier, version)
	return nil
}
