// Package manifest loads and validates the YAML manifest bundle that
// describes one indexer's configuration (§6 Manifest file): which GraphQL
// schema and handler module to load, which block range to watch, and how to
// reach the node.
package manifest
