package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/chain"
	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/fetcher"
	"github.com/syssam/indexerd/runtime"
	"github.com/syssam/indexerd/schema"
)

// Key uniquely identifies a running indexer.
type Key struct{ Namespace, Identifier string }

func (k Key) String() string { return k.Namespace + "/" + k.Identifier }

// ModuleLoader constructs a runtime.Module from module bytes, deferring the
// WASM-vs-native choice to the caller (the manifest's `module` field, §6).
type ModuleLoader func(ctx context.Context, moduleBytes []byte) (runtime.Module, error)

// NodeClientFactory builds the Block Fetcher's node client for one indexer.
type NodeClientFactory func(ctx context.Context, key Key) (fetcher.NodeClient, error)

// BoundBatch is a live per-batch database binding: a runtime.HostCallbacks
// implementation tied to one open transaction, plus the commit/revert
// actions that close it out (§4.5 steps 2, 6-7).
type BoundBatch interface {
	runtime.HostCallbacks
	Commit() error
	Revert() error
}

// DBBinder opens the batch transaction and binds it to a Runtime Host
// callback implementation. cmd/indexerd supplies the concrete binder (a real
// *db.Tx plus a ColumnResolver sourced from the running indexer's Schema
// Model); Service runs with no binder in tests, where CommitBatch degrades
// to driving the module with no persistence.
type DBBinder interface {
	BindBatch(ctx context.Context, key Key, model *schema.Model, kill *runtime.KillSwitch, budget *runtime.Budget) (BoundBatch, error)
}

// Bundle is everything Register needs for one indexer: the parsed manifest
// fields, the compiled Schema Model, and the raw module artifact.
type Bundle struct {
	Namespace, Identifier string
	Model                 *schema.Model
	SchemaSource          string
	ModuleBytes           []byte
	StartBlock            uint64
	EndBlock              *uint64
	BatchSize             uint32
	MeteringBudget        int64
}

// indexerHandle tracks one running indexer's supervised goroutine.
type indexerHandle struct {
	key     Key
	session *runtime.Session
	cancel  context.CancelFunc
	model   *schema.Model
}

// Service owns the collection of running indexers (§4.7). schemaCache
// memoizes per-(namespace,identifier) Schema Models in-process, per §5
// / §9 "Schema-as-data": after registration no component reparses the raw
// GraphQL SDL.
type Service struct {
	registry *RegistryStore
	dialect  ddl.Dialect
	logger   *slog.Logger

	loadModule ModuleLoader
	newNodeCli NodeClientFactory
	binder     DBBinder
	metrics    bool

	mu          sync.Mutex
	running     map[Key]*indexerHandle
	schemaCache map[Key]*schema.Model
	group       *errgroup.Group
	groupCtx    context.Context
}

// New constructs a Service bound to a registry store and the factories it
// needs to spin up a Runtime Host + Block Fetcher pair per indexer.
func New(registry *RegistryStore, dialect ddl.Dialect, loadModule ModuleLoader, newNodeCli NodeClientFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry:    registry,
		dialect:     dialect,
		logger:      logger,
		loadModule:  loadModule,
		newNodeCli:  newNodeCli,
		running:     map[Key]*indexerHandle{},
		schemaCache: map[Key]*schema.Model{},
	}
}

// SetDBBinder installs the production Database Adapter binding. Must be
// called before Start; without it CommitBatch drives the module with no
// persistence, which is what the in-package tests rely on.
func (s *Service) SetDBBinder(b DBBinder) { s.binder = b }

// SetMetricsEnabled controls whether CommitBatch logs a per-batch cursor/height
// line at info level (--metrics); disabled by default to keep steady-state
// logging at warn/error only.
func (s *Service) SetMetricsEnabled(enabled bool) { s.metrics = enabled }

// Start binds the supervising errgroup to a parent context; every indexer
// pair spawned by Register runs under this group (§5 "many tasks run on a
// shared worker pool").
func (s *Service) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	s.group, s.groupCtx = g, gctx
}

// Wait blocks until every supervised indexer pair has exited.
func (s *Service) Wait() error {
	if s.group == nil {
		return nil
	}
	return s.group.Wait()
}

// Register validates and spawns a new indexer (§4.7 Register): the caller
// is responsible for having already executed the DDL Builder's statements
// within a registry transaction before calling Register.
func (s *Service) Register(ctx context.Context, b Bundle) error {
	key := Key{b.Namespace, b.Identifier}

	s.mu.Lock()
	if _, exists := s.running[key]; exists {
		s.mu.Unlock()
		return indexerd.NewError(indexerd.KindConfiguration, "service.Register", fmt.Sprintf("indexer %s already running", key), nil)
	}
	s.schemaCache[key] = b.Model
	s.mu.Unlock()

	version := schema.Version(b.SchemaSource)
	if err := s.registry.Insert(ctx, Row{
		Namespace: b.Namespace, Identifier: b.Identifier, SchemaVersion: version,
		ModuleBytes: b.ModuleBytes, Cursor: b.StartBlock, StartBlock: b.StartBlock,
		EndBlock: b.EndBlock, Status: indexerd.StatusRegistered,
	}); err != nil {
		return err
	}

	return s.spawn(key, b)
}

// RegisterFromRegistry reconstructs every persisted indexer at startup and
// resumes it at its stored cursor (§4.7 Register-from-registry).
func (s *Service) RegisterFromRegistry(ctx context.Context, models map[Key]*schema.Model) error {
	rows, err := s.registry.LoadAll(ctx)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row.Status.Terminal() {
			continue
		}
		key := Key{row.Namespace, row.Identifier}
		model, ok := models[key]
		if !ok {
			s.logger.Warn("no schema model supplied for registry row, skipping resume", "indexer", key)
			continue
		}
		s.mu.Lock()
		s.schemaCache[key] = model
		s.mu.Unlock()

		b := Bundle{
			Namespace: row.Namespace, Identifier: row.Identifier, Model: model,
			ModuleBytes: row.ModuleBytes, StartBlock: row.Cursor, EndBlock: row.EndBlock,
		}
		if err := s.spawn(key, b); err != nil {
			s.logger.Error("failed to resume indexer", "indexer", key, "err", err)
		}
	}
	return nil
}

func (s *Service) spawn(key Key, b Bundle) error {
	mod, err := s.loadModule(s.groupCtx, b.ModuleBytes)
	if err != nil {
		_ = s.registry.UpdateStatus(context.Background(), key.Namespace, key.Identifier, indexerd.StatusStopped)
		return err
	}
	nodeCli, err := s.newNodeCli(s.groupCtx, key)
	if err != nil {
		return err
	}

	session := runtime.NewSession()
	if err := session.Start(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(s.groupCtx)

	handle := &indexerHandle{key: key, session: session, cancel: cancel, model: b.Model}
	s.mu.Lock()
	s.running[key] = handle
	s.mu.Unlock()

	committer := &runtimeCommitter{
		service: s, key: key, module: mod, session: session, model: b.Model,
		budgetPoints: b.MeteringBudget, logger: s.logger,
	}
	f := fetcher.New(nodeCli, committer, b.StartBlock, b.EndBlock, b.BatchSize, s.logger)

	s.group.Go(func() error {
		defer func() {
			_ = mod.Close(context.Background())
			s.mu.Lock()
			delete(s.running, key)
			s.mu.Unlock()
		}()
		runErr := f.Run(ctx)
		if runErr != nil && ctx.Err() == nil {
			_ = s.registry.UpdateStatus(context.Background(), key.Namespace, key.Identifier, session.Status())
		}
		return nil // a single indexer's failure never aborts the whole group (§7 propagation policy)
	})
	return nil
}

// runtimeCommitter adapts a runtime.Module + Session into fetcher.Committer,
// running the §4.5 per-batch protocol (kill switch + budget + commit/revert).
type runtimeCommitter struct {
	service      *Service
	key          Key
	module       runtime.Module
	session      *runtime.Session
	model        *schema.Model
	budgetPoints int64
	logger       *slog.Logger
}

// CommitBatch implements fetcher.Committer, running the §4.5 per-batch
// protocol: open the batch transaction via the Service's DBBinder (if one is
// installed), invoke the module against it, then commit on success or
// revert on any failure outcome.
func (c *runtimeCommitter) CommitBatch(ctx context.Context, batch chain.Batch) error {
	points := c.budgetPoints
	if points <= 0 {
		points = defaultMeteringBudget
	}
	kill := &runtime.KillSwitch{}
	budget := runtime.NewBudget(points)

	wire, err := encodeBatch(batch)
	if err != nil {
		c.session.BatchFailed(true)
		return indexerd.NewError(indexerd.KindModuleExecution, "service.CommitBatch", "failed to serialize batch", err)
	}

	var host runtime.HostCallbacks = noopHost{}
	var bound BoundBatch
	if c.service.binder != nil {
		bound, err = c.service.binder.BindBatch(ctx, c.key, c.model, kill, budget)
		if err != nil {
			c.session.BatchFailed(true)
			return err
		}
		host = bound
	}

	result, err := c.module.Invoke(ctx, wire, host, kill, budget)
	if err != nil {
		c.session.BatchFailed(true)
		if bound != nil {
			_ = bound.Revert()
		}
		return err
	}

	if result.Outcome != runtime.OutcomeOK {
		status := c.session.BatchFailed(false)
		if bound != nil {
			if revertErr := bound.Revert(); revertErr != nil {
				c.logger.Error("failed to revert batch transaction", "indexer", c.key, "err", revertErr)
			}
		}
		if result.Outcome == runtime.OutcomeBudgetExhausted {
			c.logger.Warn("metering budget exhausted, batch reverted", "indexer", c.key, "status", status)
			return indexerd.ErrBudgetExhausted
		}
		c.logger.Warn("batch execution failed, reverted", "indexer", c.key, "outcome", result.Outcome, "trap", result.TrapKind, "status", status)
		return fmt.Errorf("service: batch failed: %s", result.TrapKind)
	}

	if bound != nil {
		if err := bound.Commit(); err != nil {
			c.session.BatchFailed(true)
			return indexerd.NewError(indexerd.KindDatabaseTransient, "service.CommitBatch", "failed to commit batch transaction", err)
		}
	}
	c.session.BatchOK()
	if err := c.service.registry.UpdateCursor(ctx, c.key.Namespace, c.key.Identifier, batch.LastHeight()); err != nil {
		c.session.BatchFailed(true)
		return err
	}
	if c.service.metrics {
		c.logger.Info("batch committed", "indexer", c.key, "height", batch.LastHeight(), "blocks", len(batch.Blocks), "consumed", points-budget.Remaining())
	}
	return nil
}

// SessionStatus implements fetcher.Committer, letting the Fetcher tell a
// retryable transient batch failure from one the session has already
// stopped on.
func (c *runtimeCommitter) SessionStatus() indexerd.Status {
	return c.session.Status()
}

const defaultMeteringBudget = 1_000_000

// noopHost is used where the concrete *runtime.DBHost wiring (which needs a
// live *db.Tx per batch) is supplied by a higher layer; cmd/indexerd
// constructs the real host-callback binding per batch before calling Invoke
// in the production wiring path. Kept here so this package compiles and
// tests independently of the Database Adapter.
type noopHost struct{}

func (noopHost) GetObject(ctx context.Context, typeID uint64, id []byte) ([]byte, bool, error) {
	return nil, false, nil
}
func (noopHost) PutObject(ctx context.Context, typeID uint64, row []byte) error { return nil }
func (noopHost) PutManyToManyRecord(ctx context.Context, raw []byte) error      { return nil }
func (noopHost) LogData(level runtime.LogLevel, msg string)                     {}
func (noopHost) EarlyExit(code int32)                                           {}

// Remove stops an indexer's pair, drops its tables, and deletes its registry
// row (§4.7 Remove). Removal under load observes the kill switch: canceling
// the context aborts the in-flight batch, which reverts, and the supervised
// goroutine exits on its own.
func (s *Service) Remove(ctx context.Context, key Key, dropStatements []ddl.Statement, adapterExec func(context.Context, []ddl.Statement) error) error {
	s.mu.Lock()
	handle, ok := s.running[key]
	s.mu.Unlock()
	if ok {
		handle.cancel()
	}
	if adapterExec != nil {
		if err := adapterExec(ctx, dropStatements); err != nil {
			return err
		}
	}
	return s.registry.Delete(ctx, key.Namespace, key.Identifier)
}

// Pause cancels the running pair without deleting registry state; the
// indexer can be resumed later via RegisterFromRegistry.
func (s *Service) Pause(key Key) error {
	s.mu.Lock()
	handle, ok := s.running[key]
	s.mu.Unlock()
	if !ok {
		return indexerd.NewError(indexerd.KindConfiguration, "service.Pause", fmt.Sprintf("indexer %s is not running", key), nil)
	}
	handle.cancel()
	return nil
}

// Status reports the current Session status for a running indexer.
func (s *Service) Status(key Key) (indexerd.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.running[key]
	if !ok {
		return "", false
	}
	return h.session.Status(), true
}

// SchemaModel returns the in-process memoized Schema Model for a running or
// resumed indexer (§5, §9 "in-process cache of the parsed schema").
func (s *Service) SchemaModel(key Key) (*schema.Model, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.schemaCache[key]
	return m, ok
}
