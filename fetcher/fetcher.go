package fetcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/chain"
)

// Tunable delays (§4.6). Unlike batch_size these are process-wide constants
// rather than per-manifest configuration, matching the distilled spec's
// naming (DELAY_FOR_EMPTY_PAGE, MAX_EMPTY_BLOCK_REQUESTS, DELAY_FOR_SERVICE_ERR).
const (
	DelayForEmptyPage      = 1 * time.Second
	MaxEmptyBlockRequests  = 10
	DelayForServiceErr     = 3 * time.Second
	DelayAfterManyEmpties  = 30 * time.Second
	DefaultBatchSize       = 25
)

// NodeClient issues the paginated block-listing query to the node
// (§6 wire protocol: `(after: cursor, first: N)`).
type NodeClient interface {
	FetchBlocks(ctx context.Context, after uint64, first uint32) (blocks []chain.Block, err error)
}

// Committer is the Runtime Host side of the pipeline: it drives a batch
// through handle_events and reports whether it committed. SessionStatus
// reports the indexer's current state-machine status (§4.5) after a failed
// CommitBatch, so the Fetcher can tell a retryable transient failure
// (session still Running) from one the session has already given up on
// (Stopped) without the Committer needing a separate error type.
type Committer interface {
	CommitBatch(ctx context.Context, batch chain.Batch) error
	SessionStatus() indexerd.Status
}

// Fetcher drives one indexer's ingestion loop (§4.6, §9 "coroutine-style
// ingestion": a producer feeding a consumer over a logical channel — here
// expressed as direct synchronous calls per tick rather than a separate
// goroutine-plus-channel, since the Host consumes one batch fully, commit or
// revert, before the Fetcher requests the next).
type Fetcher struct {
	node      NodeClient
	host      Committer
	batchSize uint32
	endBlock  *uint64 // nil means unbounded

	cursor        uint64
	emptyStreak   int
	logger        *slog.Logger
}

// New creates a Fetcher starting at startBlock (the cursor loaded from the
// registry's `cursor` column, or the manifest's start_block on first run).
func New(node NodeClient, host Committer, startBlock uint64, endBlock *uint64, batchSize uint32, logger *slog.Logger) *Fetcher {
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{node: node, host: host, batchSize: batchSize, endBlock: endBlock, cursor: startBlock, logger: logger}
}

// Cursor returns the last block height the Host has committed through.
func (f *Fetcher) Cursor() uint64 { return f.cursor }

// Run drives the ingestion loop until ctx is canceled or the configured
// end-block is reached (§4.5 state machine: Running -> Completed).
func (f *Fetcher) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if f.endBlock != nil && f.cursor >= *f.endBlock {
			return nil
		}
		if err := f.tick(ctx); err != nil {
			return err
		}
	}
}

// tick performs steps 1-4 of §4.6 once.
func (f *Fetcher) tick(ctx context.Context) error {
	blocks, err := f.node.FetchBlocks(ctx, f.cursor, f.batchSize)
	if err != nil {
		f.logger.Warn("node fetch error, retrying", "err", err)
		return f.sleep(ctx, DelayForServiceErr)
	}

	if len(blocks) == 0 {
		if f.endBlock != nil && f.cursor >= *f.endBlock {
			return nil
		}
		f.emptyStreak++
		delay := DelayForEmptyPage
		if f.emptyStreak > MaxEmptyBlockRequests {
			delay = DelayAfterManyEmpties
		}
		return f.sleep(ctx, delay)
	}
	f.emptyStreak = 0

	batch := chain.Batch{Blocks: blocks}
	if !batch.Contiguous() {
		f.logger.Error("node returned non-contiguous batch, discarding", "first", batch.FirstHeight(), "last", batch.LastHeight())
		return f.sleep(ctx, DelayForServiceErr)
	}

	if err := f.host.CommitBatch(ctx, batch); err != nil {
		// The Host already reverted the transaction (§4.5 step 6) and
		// recorded the failure on the session. A transient failure leaves
		// the session Running, so the same batch (cursor not advanced) is
		// re-driven on the next tick up to the session's own retry bound;
		// only once the session has moved itself to Stopped does the error
		// propagate out of the loop (§4.5 "batch retried up to a small
		// bound, then Stopped").
		if f.host.SessionStatus().Terminal() {
			return err
		}
		f.logger.Warn("batch commit failed, retrying", "err", err, "status", f.host.SessionStatus())
		return f.sleep(ctx, DelayForServiceErr)
	}

	f.cursor = batch.LastHeight()
	return nil
}

func (f *Fetcher) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
