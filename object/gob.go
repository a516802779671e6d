package object

import (
	"bytes"
	"encoding/gob"
)

// init registers every concrete Entity implementation with encoding/gob so
// an Arena's entities []Entity slice (a slice of interface values) can
// round-trip through gob, which the Redis-backed module cache uses to
// serialize a built object graph.
func init() {
	gob.Register(&Module{})
	gob.Register(&Deduction{})
	gob.Register(&Node{})
	gob.Register(&Annotation{})
	gob.Register(&Widget{})
	gob.Register(&Definition{})
	gob.Register(&Assignment{})
}

// arenaWire is Arena's on-the-wire shape: the only thing worth
// serializing is the entity slice itself, since Handles are just indices
// into it and need no separate encoding.
type arenaWire struct {
	Entities []Entity
}

// EncodeArena gob-encodes a, for the write layer (as a content-addressed
// build artifact) and the module cache (as a RedisCache entry) alike.
func EncodeArena(a *Arena) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(arenaWire{Entities: a.entities}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeArena reverses EncodeArena.
func DecodeArena(data []byte) (*Arena, error) {
	var w arenaWire
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return nil, err
	}
	return &Arena{entities: w.Entities}, nil
}
