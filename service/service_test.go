package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd/chain"
	"github.com/syssam/indexerd/db"
	"github.com/syssam/indexerd/ddl"
	"github.com/syssam/indexerd/fetcher"
	"github.com/syssam/indexerd/runtime"
	"github.com/syssam/indexerd/schema"
)

type fakeModule struct {
	invocations int
	closed      bool
	failNext    bool
}

func (m *fakeModule) Info(ctx context.Context) (runtime.ModuleInfo, error) {
	return runtime.ModuleInfo{Namespace: "ns", Identifier: "ident", Version: "v1"}, nil
}

func (m *fakeModule) Invoke(ctx context.Context, batch []byte, cb runtime.HostCallbacks, kill *runtime.KillSwitch, budget *runtime.Budget) (runtime.Result, error) {
	m.invocations++
	if m.failNext {
		return runtime.Result{Outcome: runtime.OutcomeTrap, TrapKind: "unreachable"}, nil
	}
	return runtime.Result{Outcome: runtime.OutcomeOK}, nil
}

func (m *fakeModule) Close(ctx context.Context) error {
	m.closed = true
	return nil
}

type fakeNodeClient struct {
	blocks [][]chain.Block
	calls  int
}

func (n *fakeNodeClient) FetchBlocks(ctx context.Context, after uint64, first uint32) ([]chain.Block, error) {
	if n.calls >= len(n.blocks) {
		return nil, nil
	}
	p := n.blocks[n.calls]
	n.calls++
	return p, nil
}

func newTestService(t *testing.T, mod *fakeModule, node *fakeNodeClient) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	adapter := db.NewWithDB(sqlDB, ddl.Postgres)
	store := NewRegistryStore(adapter, ddl.Postgres)

	loadModule := func(ctx context.Context, moduleBytes []byte) (runtime.Module, error) { return mod, nil }
	newNodeCli := func(ctx context.Context, key Key) (fetcher.NodeClient, error) { return node, nil }

	svc := New(store, ddl.Postgres, loadModule, newNodeCli, nil)
	return svc, mock
}

func TestService_RegisterSpawnsAndCachesSchemaModel(t *testing.T) {
	mod := &fakeModule{}
	end := uint64(1)
	node := &fakeNodeClient{blocks: [][]chain.Block{{{Height: 1, Time: time.Unix(1, 0)}}}}
	svc, mock := newTestService(t, mod, node)

	mock.ExpectExec(`INSERT INTO "indexer"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "indexer" SET "cursor"`).WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	svc.Start(ctx)

	key := Key{Namespace: "ns", Identifier: "ident"}
	model := &schema.Model{}
	err := svc.Register(context.Background(), Bundle{
		Namespace: "ns", Identifier: "ident", Model: model, SchemaSource: "type Block { id: UID! @id }",
		ModuleBytes: []byte("wasm"), StartBlock: 0, EndBlock: &end, BatchSize: 10,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Wait())
	require.Equal(t, 1, mod.invocations)
	require.True(t, mod.closed)

	gotModel, ok := svc.SchemaModel(key)
	require.True(t, ok)
	require.Same(t, model, gotModel)
}

func TestService_RegisterRejectsDuplicate(t *testing.T) {
	mod := &fakeModule{}
	node := &fakeNodeClient{}
	svc, mock := newTestService(t, mod, node)
	mock.ExpectExec(`INSERT INTO "indexer"`).WillReturnResult(sqlmock.NewResult(0, 1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	key := Key{Namespace: "ns", Identifier: "ident"}
	svc.running[key] = &indexerHandle{key: key, session: runtime.NewSession(), cancel: func() {}}

	err := svc.Register(context.Background(), Bundle{Namespace: "ns", Identifier: "ident", Model: &schema.Model{}})
	require.Error(t, err)
}

func TestService_PauseUnknownIndexerErrors(t *testing.T) {
	svc, _ := newTestService(t, &fakeModule{}, &fakeNodeClient{})
	err := svc.Pause(Key{Namespace: "ns", Identifier: "missing"})
	require.Error(t, err)
}

func TestService_RemoveDeletesRegistryRow(t *testing.T) {
	svc, mock := newTestService(t, &fakeModule{}, &fakeNodeClient{})
	mock.ExpectExec(`DELETE FROM "indexer"`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Remove(context.Background(), Key{Namespace: "ns", Identifier: "ident"}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

// fakeBoundBatch records whether Commit or Revert was called, so tests can
// assert CommitBatch drives the right half of the transaction lifecycle.
type fakeBoundBatch struct {
	committed, reverted bool
}

func (b *fakeBoundBatch) GetObject(ctx context.Context, typeID uint64, id []byte) ([]byte, bool, error) {
	return nil, false, nil
}
func (b *fakeBoundBatch) PutObject(ctx context.Context, typeID uint64, row []byte) error { return nil }
func (b *fakeBoundBatch) PutManyToManyRecord(ctx context.Context, raw []byte) error      { return nil }
func (b *fakeBoundBatch) LogData(level runtime.LogLevel, msg string)                    {}
func (b *fakeBoundBatch) EarlyExit(code int32)                                          {}
func (b *fakeBoundBatch) Commit() error                                                 { b.committed = true; return nil }
func (b *fakeBoundBatch) Revert() error                                                 { b.reverted = true; return nil }

// fakeBinder hands out one fakeBoundBatch per BindBatch call and remembers
// the last one so the test can inspect it after CommitBatch returns.
type fakeBinder struct {
	last *fakeBoundBatch
}

func (f *fakeBinder) BindBatch(ctx context.Context, key Key, model *schema.Model, kill *runtime.KillSwitch, budget *runtime.Budget) (BoundBatch, error) {
	f.last = &fakeBoundBatch{}
	return f.last, nil
}

func TestRuntimeCommitter_CommitsOnSuccess(t *testing.T) {
	mod := &fakeModule{}
	node := &fakeNodeClient{}
	svc, mock := newTestService(t, mod, node)
	binder := &fakeBinder{}
	svc.SetDBBinder(binder)
	mock.ExpectExec(`UPDATE "indexer" SET "cursor"`).WillReturnResult(sqlmock.NewResult(0, 1))

	key := Key{Namespace: "ns", Identifier: "ident"}
	c := &runtimeCommitter{service: svc, key: key, module: mod, session: runtime.NewSession(), model: &schema.Model{}, logger: svc.logger}

	batch := chain.Batch{Blocks: []chain.Block{{Height: 5}}}
	err := c.CommitBatch(context.Background(), batch)
	require.NoError(t, err)
	require.NotNil(t, binder.last)
	require.True(t, binder.last.committed)
	require.False(t, binder.last.reverted)
}

func TestRuntimeCommitter_RevertsOnModuleFailure(t *testing.T) {
	mod := &fakeModule{}
	mod.failNext = true
	node := &fakeNodeClient{}
	svc, _ := newTestService(t, mod, node)
	binder := &fakeBinder{}
	svc.SetDBBinder(binder)

	key := Key{Namespace: "ns", Identifier: "ident"}
	c := &runtimeCommitter{service: svc, key: key, module: mod, session: runtime.NewSession(), model: &schema.Model{}, logger: svc.logger}

	batch := chain.Batch{Blocks: []chain.Block{{Height: 5}}}
	err := c.CommitBatch(context.Background(), batch)
	require.Error(t, err)
	require.NotNil(t, binder.last)
	require.False(t, binder.last.committed)
	require.True(t, binder.last.reverted)
}
