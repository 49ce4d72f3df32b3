package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/fetcher"
	"github.com/syssam/indexerd/runtime"
	"github.com/syssam/indexerd/schema"
	"github.com/syssam/indexerd/service"
)

var (
	flagConfigPath    string
	flagManifestPaths []string
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the indexer service, resuming persisted indexers and registering any --manifest given",
		RunE:  runRun,
	}
	cmd.Flags().StringVar(&flagConfigPath, "config", "", "optional YAML file of flag defaults")
	cmd.Flags().StringArrayVar(&flagManifestPaths, "manifest", nil, "manifest file to register on startup (repeatable)")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	if flagConfigPath != "" {
		cfg, err := loadFileConfig(flagConfigPath)
		if err != nil {
			return err
		}
		applyFileConfig(cfg)
	}

	logger := newLogger(flagLogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer adapter.Close()
	dialect := adapter.Dialect()

	if flagRunMigration {
		if err := adapter.ExecDDL(ctx, ddl.Registry(dialect)); err != nil {
			return err
		}
	}

	registry := service.NewRegistryStore(adapter, dialect)

	logSink := func(level runtime.LogLevel, msg string) {
		switch level {
		case runtime.LogError:
			logger.Error(msg)
		case runtime.LogWarn:
			logger.Warn(msg)
		case runtime.LogDebug, runtime.LogTrace:
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}
	binder := newAdapterBinder(adapter, logSink)

	loaded := make([]*loadedManifest, 0, len(flagManifestPaths))
	fuelAddrByKey := map[service.Key][2]any{}
	for _, path := range flagManifestPaths {
		lb, err := loadManifestBundle(path)
		if err != nil {
			return err
		}
		loaded = append(loaded, lb)
		key := service.Key{Namespace: lb.mf.Namespace, Identifier: lb.mf.Identifier}
		host, port := resolveFuelAddr(lb.mf)
		fuelAddrByKey[key] = [2]any{host, port}
	}

	// newNodeCli resolves a per-manifest fuel_client override when one was
	// registered this run; indexers resumed from the registry alone (no
	// --manifest given this invocation) fall back to the process-wide
	// --fuel-node-host/port flags, since the registry does not persist
	// fuel_client.
	newNodeCli := func(ctx context.Context, key service.Key) (fetcher.NodeClient, error) {
		if addr, ok := fuelAddrByKey[key]; ok {
			return newHTTPNodeClient(addr[0].(string), addr[1].(int)), nil
		}
		return newHTTPNodeClient(flagFuelHost, flagFuelPort), nil
	}

	svc := service.New(registry, dialect, loadModule, newNodeCli, logger)
	svc.SetDBBinder(binder)
	svc.SetMetricsEnabled(flagMetrics)
	svc.Start(ctx)

	models := make(map[service.Key]*schema.Model, len(loaded))
	for _, lb := range loaded {
		key := service.Key{Namespace: lb.mf.Namespace, Identifier: lb.mf.Identifier}
		models[key] = lb.model
	}
	if err := svc.RegisterFromRegistry(ctx, models); err != nil {
		logger.Error("failed to resume persisted indexers", "err", err)
	}

	for _, lb := range loaded {
		key := service.Key{Namespace: lb.mf.Namespace, Identifier: lb.mf.Identifier}
		if _, running := svc.Status(key); running {
			continue
		}
		var endPtr *uint64
		var start uint64
		if lb.mf.StartBlock != nil {
			start = *lb.mf.StartBlock
		}
		if lb.mf.EndBlock != nil {
			end := *lb.mf.EndBlock
			endPtr = &end
		}
		if err := svc.Register(ctx, service.Bundle{
			Namespace: lb.mf.Namespace, Identifier: lb.mf.Identifier, Model: lb.model,
			SchemaSource: lb.sdlSource, ModuleBytes: lb.moduleBytes,
			StartBlock: start, EndBlock: endPtr,
		}); err != nil {
			return err
		}
	}

	return svc.Wait()
}
