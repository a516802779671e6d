package index

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-process GraphStore, the index package's analogue of
// the write layer's in-memory backend: useful for tests and for a
// single-process builder run that does not need a standalone graph
// database.
type MemStore struct {
	mu      sync.Mutex
	nextID  int
	nodes   map[NodeID]*memNode
	byLabel map[string][]NodeID
}

type memNode struct {
	label string
	props map[string]Property
	edges []memEdge
}

type memEdge struct {
	to       NodeID
	edgeType string
	props    map[string]Property
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:   make(map[NodeID]*memNode),
		byLabel: make(map[string][]NodeID),
	}
}

func (s *MemStore) Begin(_ context.Context) (Tx, error) {
	return &memTx{store: s}, nil
}

// memTx executes directly against the store (no isolation/rollback log);
// adequate for the single-writer-at-a-time usage the builder's checkout
// discipline already guarantees. Rollback is a no-op since nothing here
// stages writes before Commit.
type memTx struct {
	store *MemStore
}

func (tx *memTx) MergeNode(label string, keyProps, setProps map[string]Property) (NodeID, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byLabel[label] {
		n := s.nodes[id]
		if matches(n.props, keyProps) {
			for k, v := range setProps {
				n.props[k] = v
			}
			return id, nil
		}
	}
	s.nextID++
	id := NodeID(fmt.Sprintf("%s-%d", label, s.nextID))
	props := make(map[string]Property, len(keyProps)+len(setProps))
	for k, v := range keyProps {
		props[k] = v
	}
	for k, v := range setProps {
		props[k] = v
	}
	s.nodes[id] = &memNode{label: label, props: props}
	s.byLabel[label] = append(s.byLabel[label], id)
	return id, nil
}

func (tx *memTx) MergeEdge(from, to NodeID, edgeType string, setProps map[string]Property) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[from]
	if !ok {
		return fmt.Errorf("index: no such node %s", from)
	}
	for i, e := range n.edges {
		if e.to == to && e.edgeType == edgeType {
			for k, v := range setProps {
				n.edges[i].props[k] = v
			}
			return nil
		}
	}
	n.edges = append(n.edges, memEdge{to: to, edgeType: edgeType, props: setProps})
	return nil
}

func (tx *memTx) Query(label string, matchProps map[string]Property) ([]NodeID, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []NodeID
	for _, id := range s.byLabel[label] {
		if matches(s.nodes[id].props, matchProps) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (tx *memTx) GetProps(id NodeID) (map[string]Property, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("index: no such node %s", id)
	}
	out := make(map[string]Property, len(n.props))
	for k, v := range n.props {
		out[k] = v
	}
	return out, nil
}

func (tx *memTx) DeleteNode(id NodeID) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	delete(s.nodes, id)
	for _, other := range s.nodes {
		kept := other.edges[:0]
		for _, e := range other.edges {
			if e.to != id {
				kept = append(kept, e)
			}
		}
		other.edges = kept
	}
	ids := s.byLabel[n.label]
	for i, other := range ids {
		if other == id {
			s.byLabel[n.label] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (tx *memTx) Commit() error   { return nil }
func (tx *memTx) Rollback() error { return nil }

func matches(props, match map[string]Property) bool {
	for k, v := range match {
		if props[k] != v {
			return false
		}
	}
	return true
}
