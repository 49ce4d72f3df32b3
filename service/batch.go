package service

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/indexerd/chain"
)

// encodeBatch serializes a chain.Batch into the opaque wire payload passed to
// runtime.Module.Invoke's handle_events call. msgpack is used for this
// boundary the same way it is for the many-to-many host-call payload
// (runtime/host.go), rather than inventing a second ad-hoc wire format.
func encodeBatch(batch chain.Batch) ([]byte, error) {
	return msgpack.Marshal(batch)
}
