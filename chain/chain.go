// Package chain defines the wire shape of the block feed the node exposes to
// the Block Fetcher, and the receipt taxonomy handlers dispatch on.
package chain

import "time"

// ReceiptKind enumerates the per-transaction event records a UTXO execution
// layer emits (glossary: Receipt). Handlers commonly switch on this to decide
// which entities to materialize for a given transaction.
type ReceiptKind string

const (
	ReceiptCall         ReceiptKind = "Call"
	ReceiptLog          ReceiptKind = "Log"
	ReceiptLogData      ReceiptKind = "LogData"
	ReceiptTransfer     ReceiptKind = "Transfer"
	ReceiptTransferOut  ReceiptKind = "TransferOut"
	ReceiptMessageOut   ReceiptKind = "MessageOut"
	ReceiptScriptResult ReceiptKind = "ScriptResult"
	ReceiptOther        ReceiptKind = "Other"
)

// Receipt is a single typed event produced by executing one transaction.
// Payload carries the receipt-kind-specific fields as raw bytes so the wire
// codec (package codec) can place them on the module side without this
// package needing to know every handler's entity shapes.
type Receipt struct {
	Kind       ReceiptKind
	ContractID [32]byte
	Data       []byte
	Ra, Rb     uint64 // general-purpose registers carried by Call/ScriptResult receipts
}

// Transaction is one transaction within a block and its resulting receipts.
type Transaction struct {
	ID       [32]byte
	Receipts []Receipt
}

// Block is a single paginated unit from the node's block feed (§6 Wire
// protocol to the node: height, id, time, producer, list of transactions).
type Block struct {
	Height       uint64
	ID           [32]byte
	Time         time.Time
	Producer     [32]byte
	Transactions []Transaction
}

// Batch is a contiguous, ordered run of blocks handed to the Runtime Host in
// one call to handle_events. Ordering is height-ascending and unbroken; the
// Block Fetcher is responsible for that invariant (§4.6).
type Batch struct {
	Blocks []Block
}

// FirstHeight and LastHeight report the batch's block-height bounds. Calling
// either on an empty batch panics; callers must check len(b.Blocks) first,
// matching the spec's "a batch containing zero blocks is a no-op" boundary
// case, which is handled by the caller skipping dispatch entirely rather than
// by these accessors tolerating an empty batch.
func (b Batch) FirstHeight() uint64 { return b.Blocks[0].Height }
func (b Batch) LastHeight() uint64  { return b.Blocks[len(b.Blocks)-1].Height }

// Contiguous reports whether the batch's blocks are strictly increasing in
// height with no gaps, the invariant the Block Fetcher must uphold before
// handing a batch to the Runtime Host.
func (b Batch) Contiguous() bool {
	for i := 1; i < len(b.Blocks); i++ {
		if b.Blocks[i].Height != b.Blocks[i-1].Height+1 {
			return false
		}
	}
	return true
}
