// Package service is the Indexer Service (§4.7): it owns the collection of
// running indexers, persists the registry, and supervises each indexer's
// Block Fetcher + Runtime Host pair with golang.org/x/sync/errgroup.
package service
