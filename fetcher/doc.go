// Package fetcher is the Block Fetcher (§4.6): it maintains an in-memory
// cursor, polls the node's paginated block-listing GraphQL query
// (after/first), and delivers contiguous batches to the Runtime Host,
// advancing the cursor only after the Host commits.
package fetcher
