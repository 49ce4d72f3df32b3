package runtime

import (
	"context"
	"fmt"
	"plugin"

	"github.com/syssam/indexerd"
)

// NativeModule is the dynamically linked executor (§4.5, original_source's
// NativeIndexExecutor): a Go plugin loaded via the standard library's
// plugin package. Go's in-process shared memory makes the ptr/len FFI
// convention the WASM side needs unnecessary — the plugin exports typed Go
// functions directly, and this type adapts them to the same Module
// interface the sandboxed executor presents. plugin has no third-party
// alternative for in-process dlopen-style loading (documented stdlib
// exception, DESIGN.md).
type NativeModule struct {
	handle       *plugin.Plugin
	handleEvents func(batch []byte, cb HostCallbacks) error
	getNamespace func() string
	getIdent     func() string
	getVersion   func() string
}

// LoadNative opens a .so plugin and resolves its four required symbols.
func LoadNative(path string) (*NativeModule, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadNative", "failed to open plugin", err)
	}

	m := &NativeModule{handle: p}

	handleEventsSym, err := p.Lookup("HandleEvents")
	if err != nil {
		return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadNative", "missing export HandleEvents", indexerd.ErrMissingEntryPoint)
	}
	handleEvents, ok := handleEventsSym.(func([]byte, HostCallbacks) error)
	if !ok {
		return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadNative", fmt.Sprintf("HandleEvents has unexpected signature %T", handleEventsSym), nil)
	}
	m.handleEvents = handleEvents

	for name, dst := range map[string]*func() string{
		"GetNamespace": &m.getNamespace,
		"GetIdentifier": &m.getIdent,
		"GetVersion":    &m.getVersion,
	} {
		sym, err := p.Lookup(name)
		if err != nil {
			return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadNative", "missing export "+name, indexerd.ErrMissingEntryPoint)
		}
		fn, ok := sym.(func() string)
		if !ok {
			return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadNative", fmt.Sprintf("%s has unexpected signature %T", name, sym), nil)
		}
		*dst = fn
	}

	return m, nil
}

// Info implements Module.
func (m *NativeModule) Info(ctx context.Context) (ModuleInfo, error) {
	return ModuleInfo{Namespace: m.getNamespace(), Identifier: m.getIdent(), Version: m.getVersion()}, nil
}

// Invoke implements Module: native modules run in-process, so there is no
// serialize/alloc/dealloc round trip — handle_events is called directly with
// the host callbacks, and the kill switch is checked before the call and
// the kill switch and budget after it, since plugin code cannot be
// preempted mid-call.
func (m *NativeModule) Invoke(ctx context.Context, batch []byte, cb HostCallbacks, kill *KillSwitch, budget *Budget) (Result, error) {
	if kill.Tripped() {
		return Result{Outcome: OutcomeTrap, TrapKind: "killed"}, nil
	}

	done := make(chan error, 1)
	go func() {
		done <- m.safeInvoke(batch, cb)
	}()

	select {
	case <-ctx.Done():
		kill.Trip()
		return Result{Outcome: OutcomeTrap, TrapKind: "context canceled", RemainingPoints: uint64(budget.Remaining())}, nil
	case err := <-done:
		if err != nil {
			return Result{Outcome: OutcomeHandlerError, TrapKind: err.Error(), RemainingPoints: uint64(budget.Remaining())}, nil
		}
	}

	if kill.Tripped() {
		return Result{Outcome: OutcomeTrap, TrapKind: "killed", RemainingPoints: uint64(budget.Remaining())}, nil
	}
	if budget.Remaining() < 0 {
		return Result{Outcome: OutcomeBudgetExhausted}, nil
	}
	if host, ok := cb.(*DBHost); ok {
		if hit, code := host.EarlyExitHit(); hit {
			return Result{Outcome: OutcomeHandlerError, TrapKind: fmt.Sprintf("early_exit(%d)", code)}, nil
		}
	}
	return Result{Outcome: OutcomeOK, RemainingPoints: uint64(budget.Remaining())}, nil
}

// safeInvoke recovers a guest panic into an error, since a single-batch
// module panic is a transient error the session retries up to a bound (§4.5).
func (m *NativeModule) safeInvoke(batch []byte, cb HostCallbacks) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("runtime: native module panicked: %v", r)
		}
	}()
	return m.handleEvents(batch, cb)
}

// Close is a no-op: loaded Go plugins cannot be unloaded.
func (m *NativeModule) Close(ctx context.Context) error { return nil }
