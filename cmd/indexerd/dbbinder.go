package main

import (
	"context"
	"sync"

	"github.com/syssam/indexerd/db"
	"github.com/syssam/indexerd/runtime"
	"github.com/syssam/indexerd/schema"
	"github.com/syssam/indexerd/service"
)

// boundBatch adapts a *runtime.DBHost (opened against one *db.Tx) plus that
// transaction's lifecycle into service.BoundBatch.
type boundBatch struct {
	*runtime.DBHost
	tx *db.Tx
}

func (b *boundBatch) Commit() error { return b.tx.CommitTx() }
func (b *boundBatch) Revert() error { return b.tx.RevertTx() }

// adapterBinder is the production service.DBBinder: it opens one batch
// transaction per CommitBatch call against a live *db.Adapter and binds it
// to a runtime.DBHost scoped by the indexer's own Schema Model (§4.5 steps
// 2-7).
type adapterBinder struct {
	adapter *db.Adapter
	logger  func(runtime.LogLevel, string)

	mu       sync.Mutex
	catalogs map[service.Key]*modelCatalog
}

func newAdapterBinder(adapter *db.Adapter, logSink func(runtime.LogLevel, string)) *adapterBinder {
	return &adapterBinder{adapter: adapter, logger: logSink, catalogs: map[service.Key]*modelCatalog{}}
}

func (b *adapterBinder) catalogFor(key service.Key, model *schema.Model) *modelCatalog {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.catalogs[key]; ok {
		return c
	}
	c := newModelCatalog(model, b.adapter.Dialect())
	b.catalogs[key] = c
	return c
}

// BindBatch implements service.DBBinder.
func (b *adapterBinder) BindBatch(ctx context.Context, key service.Key, model *schema.Model, kill *runtime.KillSwitch, budget *runtime.Budget) (service.BoundBatch, error) {
	catalog := b.catalogFor(key, model)
	tx, err := b.adapter.StartTx(ctx, catalog)
	if err != nil {
		return nil, err
	}
	host := runtime.NewDBHost(tx, b.adapter.Dialect(), model.Namespace, catalog, kill, budget)
	if b.logger != nil {
		host.SetLogSink(b.logger)
	}
	return &boundBatch{DBHost: host, tx: tx}, nil
}
