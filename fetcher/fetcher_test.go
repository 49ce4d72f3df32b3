package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syssam/indexerd"
	"github.com/syssam/indexerd/chain"
)

type fakeNode struct {
	pages [][]chain.Block
	calls int
	err   error
}

func (f *fakeNode) FetchBlocks(ctx context.Context, after uint64, first uint32) ([]chain.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.calls >= len(f.pages) {
		return nil, nil
	}
	p := f.pages[f.calls]
	f.calls++
	return p, nil
}

type fakeCommitter struct {
	batches []chain.Batch
}

func (c *fakeCommitter) CommitBatch(ctx context.Context, batch chain.Batch) error {
	c.batches = append(c.batches, batch)
	return nil
}

func (c *fakeCommitter) SessionStatus() indexerd.Status { return indexerd.StatusRunning }

func block(h uint64) chain.Block { return chain.Block{Height: h, Time: time.Unix(int64(h), 0)} }

func TestFetcher_AdvancesCursorOnlyAfterCommit(t *testing.T) {
	node := &fakeNode{pages: [][]chain.Block{{block(1), block(2)}}}
	host := &fakeCommitter{}
	end := uint64(2)
	f := New(node, host, 0, &end, 10, nil)

	require.NoError(t, f.Run(context.Background()))
	require.Equal(t, uint64(2), f.Cursor())
	require.Len(t, host.batches, 1)
}

func TestFetcher_StopsAtEndBlockWithoutFetching(t *testing.T) {
	node := &fakeNode{}
	host := &fakeCommitter{}
	end := uint64(5)
	f := New(node, host, 5, &end, 10, nil)

	require.NoError(t, f.Run(context.Background()))
	require.Equal(t, 0, node.calls)
}

func TestFetcher_NonContiguousBatchDiscarded(t *testing.T) {
	node := &fakeNode{pages: [][]chain.Block{{block(1), block(5)}}}
	host := &fakeCommitter{}
	f := New(node, host, 0, nil, 10, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := f.Run(ctx)
	require.Error(t, err)
	require.Empty(t, host.batches)
}

func TestFetcher_NodeErrorRetriesWithoutAdvancingCursor(t *testing.T) {
	node := &fakeNode{err: errors.New("timeout")}
	host := &fakeCommitter{}
	f := New(node, host, 0, nil, 10, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = f.Run(ctx)
	require.Equal(t, uint64(0), f.Cursor())
}

func TestFetcher_HostErrorPropagatesWithoutAdvancingCursor(t *testing.T) {
	node := &fakeNode{pages: [][]chain.Block{{block(1)}}}
	host := &erroringCommitter{err: errors.New("revert")}
	f := New(node, host, 0, nil, 10, nil)

	err := f.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, uint64(0), f.Cursor())
}

func TestFetcher_RetriesSameBatchWhileSessionRunning(t *testing.T) {
	// The node answers the retry's re-fetch from the unchanged cursor with
	// the same blocks, so it serves the page twice.
	node := &fakeNode{pages: [][]chain.Block{{block(1), block(2)}, {block(1), block(2)}}}
	host := &retryingCommitter{failCount: 1}
	end := uint64(2)
	f := New(node, host, 0, &end, 10, nil)

	require.NoError(t, f.Run(context.Background()))
	require.Equal(t, 2, host.attempts)
	require.Len(t, host.batches, 1)
	require.Equal(t, uint64(2), f.Cursor())
}

// erroringCommitter always fails and reports its session as already
// Stopped, modeling a fatal batch failure: the Fetcher must propagate the
// error immediately rather than retry.
type erroringCommitter struct{ err error }

func (c *erroringCommitter) CommitBatch(ctx context.Context, batch chain.Batch) error { return c.err }
func (c *erroringCommitter) SessionStatus() indexerd.Status                           { return indexerd.StatusStopped }

// retryingCommitter fails the first failCount batches while reporting its
// session as still Running (a transient failure, §4.5), then succeeds.
type retryingCommitter struct {
	failCount int
	attempts  int
	batches   []chain.Batch
}

func (c *retryingCommitter) CommitBatch(ctx context.Context, batch chain.Batch) error {
	c.attempts++
	if c.attempts <= c.failCount {
		return errors.New("transient module trap")
	}
	c.batches = append(c.batches, batch)
	return nil
}

func (c *retryingCommitter) SessionStatus() indexerd.Status { return indexerd.StatusRunning }
