package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/syssam/indexerd/runtime"
)

// wasmMagic is the four-byte WebAssembly binary header; used to distinguish
// a WASM module's bytes from a native shared-object's bytes, since the
// Service's ModuleLoader is handed a plain []byte regardless of which kind
// the manifest declared.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// loadModule is the service.ModuleLoader wired into cmd/indexerd's Service:
// WASM bytes run under wazero (runtime.LoadWasm); native bytes are written
// to a temp file and opened through the standard library's plugin package
// (runtime.LoadNative), since Go's plugin.Open only accepts a filesystem
// path, never an in-memory image.
func loadModule(ctx context.Context, moduleBytes []byte) (runtime.Module, error) {
	if bytes.HasPrefix(moduleBytes, wasmMagic) {
		return runtime.LoadWasm(ctx, moduleBytes)
	}

	f, err := os.CreateTemp("", "indexerd-module-*.so")
	if err != nil {
		return nil, fmt.Errorf("indexerd: staging native module: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(moduleBytes); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("indexerd: staging native module: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("indexerd: staging native module: %w", err)
	}
	return runtime.LoadNative(path)
}
