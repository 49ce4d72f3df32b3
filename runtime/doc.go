// Package runtime is the Runtime Host (§4.5): it loads a user module —
// either a sandboxed WASM artifact (via github.com/tetratelabs/wazero) or a
// dynamically linked native artifact (via the standard library's plugin
// package) — and drives it through block batches, exposing the four
// ff_* host functions the module imports and enforcing the per-batch
// transaction/kill-switch/metering protocol.
package runtime
