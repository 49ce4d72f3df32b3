package runtime

import (
	"context"
	"sync/atomic"
)

// LogLevel mirrors the five levels a module can pass to ff_log_data (§4.5).
type LogLevel int32

const (
	LogError LogLevel = iota
	LogWarn
	LogInfo
	LogDebug
	LogTrace
)

// ModuleInfo is a module's self-description, read at load time via its
// get_namespace/get_identifier/get_version exports (§4.5).
type ModuleInfo struct {
	Namespace  string
	Identifier string
	Version    string // schema-version the module was compiled against

	// ToolchainVersion holds the module's toolchain version. Neither
	// WasmModule.Info nor NativeModule.Info fills it in (no toolchain-version
	// export is read), and no compatibility check is made against it.
	ToolchainVersion string
}

// Outcome is the per-batch result the host reports for observability (§4.5).
type Outcome string

const (
	OutcomeOK              Outcome = "ok"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
	OutcomeTrap            Outcome = "trap"
	OutcomeHandlerError    Outcome = "handler_error"
)

// Result is what Invoke returns after one handle_events call.
type Result struct {
	Outcome         Outcome
	RemainingPoints uint64
	TrapKind        string
	Err             error
}

// HostCallbacks is what a Module invokes through the four ff_* imports
// (§4.5). Implementations bind these to a single open db.Tx for the
// duration of one batch.
type HostCallbacks interface {
	GetObject(ctx context.Context, typeID uint64, id []byte) (data []byte, ok bool, err error)
	PutObject(ctx context.Context, typeID uint64, row []byte) error
	PutManyToManyRecord(ctx context.Context, raw []byte) error
	LogData(level LogLevel, msg string)
	EarlyExit(code int32)
}

// Module is the unified interface both the sandboxed WASM executor and the
// native plugin executor present to the Runtime Host (§4.5: "both present
// the same interface").
type Module interface {
	// Info reads the module's self-description exports.
	Info(ctx context.Context) (ModuleInfo, error)
	// Invoke drives one handle_events(ptr, len) call over a serialized block
	// batch, dispatching ff_* calls to cb, observing kill and budget.
	Invoke(ctx context.Context, batch []byte, cb HostCallbacks, kill *KillSwitch, budget *Budget) (Result, error)
	// Close releases any resources backing the module (WASM runtime,
	// dynamic library handle).
	Close(ctx context.Context) error
}

// KillSwitch is an atomic flag a supervisor can trip to abort an in-flight
// batch (§4.5 step 3, step 6).
type KillSwitch struct {
	tripped atomic.Bool
}

// Trip marks the kill switch observed; the next host-call checkpoint inside
// Invoke will abort the batch.
func (k *KillSwitch) Trip() { k.tripped.Store(true) }

// Tripped reports whether Trip has been called.
func (k *KillSwitch) Tripped() bool { return k.tripped.Load() }

// Budget approximates §4.5's metering: "a cost is charged per module
// instruction; exceeding the budget causes a trap." wazero has no in-tree
// gas-metering instrumentation (unlike wasmer's metering middleware the
// original implementation relies on), so this host approximates it by
// charging one point per host call (ff_get_object/ff_put_object/
// ff_put_many_to_many_record) instead of per guest instruction — a
// documented simplification, not per-instruction metering.
type Budget struct {
	remaining atomic.Int64
}

// NewBudget creates a Budget with the given starting point allowance.
func NewBudget(points int64) *Budget {
	b := &Budget{}
	b.remaining.Store(points)
	return b
}

// Charge deducts cost points, returning false if the budget is exhausted.
func (b *Budget) Charge(cost int64) bool {
	return b.remaining.Add(-cost) >= 0
}

// Remaining reports the current point balance.
func (b *Budget) Remaining() int64 { return b.remaining.Load() }
