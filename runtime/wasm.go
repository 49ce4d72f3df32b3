package runtime

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/syssam/indexerd"
)

// WasmModule is the sandboxed bytecode executor (§4.5, §9 "sandbox boundary
// as a message channel"): a WASM guest compiled from a user indexer,
// instantiated by wazero with the four ff_* host functions exported under
// the "env" module namespace.
type WasmModule struct {
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
	instance api.Module
	binding  *hostBinding
}

// LoadWasm compiles and instantiates a WASM module's bytes, wiring the host
// functions and WASI preview1 (the guest toolchain commonly targets it for
// panics/aborts).
func LoadWasm(ctx context.Context, wasmBytes []byte) (*WasmModule, error) {
	rt := wazero.NewRuntime(ctx)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadWasm", "failed to instantiate WASI", err)
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadWasm", "failed to compile module", err)
	}

	m := &WasmModule{runtime: rt, compiled: compiled}
	if err := m.registerHostModule(ctx); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	instance, err := rt.InstantiateModule(ctx, compiled, wazero.NewModuleConfig())
	if err != nil {
		rt.Close(ctx)
		return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadWasm", "failed to instantiate module", err)
	}
	m.instance = instance

	for _, name := range []string{"handle_events", "alloc_fn", "dealloc_fn", "get_namespace_ptr", "get_namespace_len", "get_identifier_ptr", "get_identifier_len", "get_version_ptr", "get_version_len"} {
		if instance.ExportedFunction(name) == nil {
			rt.Close(ctx)
			return nil, indexerd.NewError(indexerd.KindModuleLoad, "runtime.LoadWasm", fmt.Sprintf("missing export %q", name), indexerd.ErrMissingEntryPoint)
		}
	}

	return m, nil
}

// hostBinding is set per-Invoke call so the exported ff_* functions can reach
// the current batch's HostCallbacks without a global. ff_put_object's export
// signature is void (wazero host functions can't return a Go error to the
// guest), so a failed write is latched here and surfaces as Invoke's trap
// outcome once the guest call returns.
type hostBinding struct {
	ctx context.Context
	cb  HostCallbacks
	err error
}

func (m *WasmModule) registerHostModule(ctx context.Context) error {
	binding := &hostBinding{}
	m.binding = binding

	builder := m.runtime.NewHostModuleBuilder("env")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, typeID uint64, idPtr, idLen uint32, lenOut uint32) uint32 {
		return m.ffGetObject(ctx, mod, typeID, idPtr, idLen, lenOut)
	}).Export("ff_get_object")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, typeID uint64, rowPtr, rowLen uint32) {
		m.ffPutObject(ctx, mod, typeID, rowPtr, rowLen)
	}).Export("ff_put_object")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
		m.ffPutManyToManyRecord(ctx, mod, ptr, length)
	}).Export("ff_put_many_to_many_record")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length, level uint32) {
		m.ffLogData(ctx, mod, ptr, length, level)
	}).Export("ff_log_data")
	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, code uint32) {
		m.ffEarlyExit(ctx, mod, code)
	}).Export("ff_early_exit")

	if _, err := builder.Instantiate(ctx); err != nil {
		return indexerd.NewError(indexerd.KindModuleLoad, "runtime.registerHostModule", "failed to instantiate host module", err)
	}
	return nil
}

func readMemory(mod api.Module, ptr, length uint32) ([]byte, bool) {
	return mod.Memory().Read(ptr, length)
}

func (m *WasmModule) ffGetObject(ctx context.Context, mod api.Module, typeID uint64, idPtr, idLen, lenOutPtr uint32) uint32 {
	id, ok := readMemory(mod, idPtr, idLen)
	if !ok {
		return 0
	}
	data, found, err := m.binding.cb.GetObject(m.binding.ctx, typeID, id)
	if err != nil || !found {
		return 0
	}

	allocFn := mod.ExportedFunction("alloc_fn")
	res, err := allocFn.Call(ctx, uint64(len(data)))
	if err != nil || len(res) == 0 {
		return 0
	}
	ptr := uint32(res[0])
	mod.Memory().Write(ptr, data)
	mod.Memory().WriteUint32Le(lenOutPtr, uint32(len(data)))
	return ptr
}

func (m *WasmModule) ffPutObject(ctx context.Context, mod api.Module, typeID uint64, rowPtr, rowLen uint32) {
	row, ok := readMemory(mod, rowPtr, rowLen)
	if !ok {
		return
	}
	if err := m.binding.cb.PutObject(m.binding.ctx, typeID, row); err != nil && m.binding.err == nil {
		m.binding.err = err
	}
}

func (m *WasmModule) ffPutManyToManyRecord(ctx context.Context, mod api.Module, ptr, length uint32) {
	raw, ok := readMemory(mod, ptr, length)
	if !ok {
		return
	}
	_ = m.binding.cb.PutManyToManyRecord(m.binding.ctx, raw)
}

func (m *WasmModule) ffLogData(ctx context.Context, mod api.Module, ptr, length, level uint32) {
	msg, ok := readMemory(mod, ptr, length)
	if !ok {
		return
	}
	m.binding.cb.LogData(LogLevel(level), string(msg))
}

func (m *WasmModule) ffEarlyExit(ctx context.Context, mod api.Module, code uint32) {
	m.binding.cb.EarlyExit(int32(code))
}

// Info reads the module's namespace/identifier/version exports (§4.5).
func (m *WasmModule) Info(ctx context.Context) (ModuleInfo, error) {
	ns, err := m.readExportedString(ctx, "get_namespace_ptr", "get_namespace_len")
	if err != nil {
		return ModuleInfo{}, err
	}
	id, err := m.readExportedString(ctx, "get_identifier_ptr", "get_identifier_len")
	if err != nil {
		return ModuleInfo{}, err
	}
	ver, err := m.readExportedString(ctx, "get_version_ptr", "get_version_len")
	if err != nil {
		return ModuleInfo{}, err
	}
	return ModuleInfo{Namespace: ns, Identifier: id, Version: ver}, nil
}

func (m *WasmModule) readExportedString(ctx context.Context, ptrFn, lenFn string) (string, error) {
	ptrRes, err := m.instance.ExportedFunction(ptrFn).Call(ctx)
	if err != nil {
		return "", indexerd.NewError(indexerd.KindModuleExecution, "runtime.readExportedString", "call "+ptrFn, err)
	}
	lenRes, err := m.instance.ExportedFunction(lenFn).Call(ctx)
	if err != nil {
		return "", indexerd.NewError(indexerd.KindModuleExecution, "runtime.readExportedString", "call "+lenFn, err)
	}
	data, ok := m.instance.Memory().Read(uint32(ptrRes[0]), uint32(lenRes[0]))
	if !ok {
		return "", indexerd.NewError(indexerd.KindModuleExecution, "runtime.readExportedString", "out of bounds memory read", nil)
	}
	return string(data), nil
}

// Invoke drives one handle_events(ptr, len) call (§4.5 steps 1, 3-8).
func (m *WasmModule) Invoke(ctx context.Context, batch []byte, cb HostCallbacks, kill *KillSwitch, budget *Budget) (Result, error) {
	m.binding.ctx, m.binding.cb, m.binding.err = ctx, cb, nil

	header := make([]byte, 4+len(batch))
	binary.BigEndian.PutUint32(header, uint32(len(batch)))
	copy(header[4:], batch)

	allocFn := m.instance.ExportedFunction("alloc_fn")
	allocRes, err := allocFn.Call(ctx, uint64(len(header)))
	if err != nil {
		return Result{Outcome: OutcomeTrap, TrapKind: "alloc"}, nil
	}
	ptr := uint32(allocRes[0])
	m.instance.Memory().Write(ptr, header)

	invokeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// wazero honors invokeCtx cancellation as an interrupt on the next
		// safepoint. Distinguish the caller actually canceling (trip the
		// kill switch so Invoke reports "killed") from Invoke simply
		// returning and calling cancel() itself below.
		select {
		case <-ctx.Done():
			kill.Trip()
		case <-invokeCtx.Done():
		}
	}()

	_, callErr := m.instance.ExportedFunction("handle_events").Call(invokeCtx, uint64(ptr), uint64(len(header)))

	dealloc := m.instance.ExportedFunction("dealloc_fn")
	_, _ = dealloc.Call(ctx, uint64(ptr), uint64(len(header)))

	if kill.Tripped() {
		return Result{Outcome: OutcomeTrap, TrapKind: "killed", RemainingPoints: uint64(budget.Remaining())}, nil
	}
	if budget.Remaining() < 0 {
		return Result{Outcome: OutcomeBudgetExhausted, RemainingPoints: 0}, nil
	}
	if m.binding.err != nil {
		return Result{Outcome: OutcomeTrap, TrapKind: m.binding.err.Error(), RemainingPoints: uint64(budget.Remaining())}, nil
	}
	if callErr != nil {
		return Result{Outcome: OutcomeTrap, TrapKind: callErr.Error(), RemainingPoints: uint64(budget.Remaining())}, nil
	}
	if host, ok := cb.(*DBHost); ok {
		if hit, code := host.EarlyExitHit(); hit {
			return Result{Outcome: OutcomeHandlerError, TrapKind: fmt.Sprintf("early_exit(%d)", code), RemainingPoints: uint64(budget.Remaining())}, nil
		}
	}
	return Result{Outcome: OutcomeOK, RemainingPoints: uint64(budget.Remaining())}, nil
}

// Close releases the wazero runtime.
func (m *WasmModule) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}
