// Package index implements the build pipeline's versioned graph index: the
// Module Index Info accumulator that computes each module's major-minor
// closure and here/elsewhere/nowhere placement, and the graph writer that
// commits those results, plus move/retargets propagation, against a
// property-graph backend.
package index

import "context"

// Property is one scalar or list-of-scalar value attached to a graph node
// or edge, the same loosely-typed shape the registry storage layer uses
// for its own blob-descriptor metadata.
type Property = interface{}

// NodeID identifies one node in the backing graph store.
type NodeID string

// GraphStore is the port the index (and, for its graph-embedded blob
// side-table, the write layer) is built against. It is deliberately
// small: enough to create/merge nodes and edges transactionally and query
// them by label and property, without committing this module to any one
// graph database's client library.
type GraphStore interface {
	// Begin opens a transaction. All the index's multi-step commit
	// phases run inside one, so a failure partway through never leaves
	// the graph in a half-migrated state.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one graph-store transaction.
type Tx interface {
	// MergeNode finds-or-creates the node uniquely identified by
	// (label, keyProps) and applies setProps to it, returning its ID.
	MergeNode(label string, keyProps, setProps map[string]Property) (NodeID, error)
	// MergeEdge finds-or-creates a directed edge of the given type
	// between from and to, applying setProps to it.
	MergeEdge(from, to NodeID, edgeType string, setProps map[string]Property) error
	// Query runs a backend-specific query and returns matching node IDs;
	// used sparingly, for lookups the index's own bookkeeping cannot
	// answer from data already in hand (e.g. "find the VERSION node for
	// repo R at major M").
	Query(label string, matchProps map[string]Property) ([]NodeID, error)
	// GetProps returns the current property set of a node.
	GetProps(id NodeID) (map[string]Property, error)
	// DeleteNode removes a node and its incident edges.
	DeleteNode(id NodeID) error
	// Commit finalizes the transaction. Rollback discards it.
	Commit() error
	Rollback() error
}
