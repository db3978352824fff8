// Package storage loads raw menu snapshots for the catalog cache.
package storage

import (
	"context"
	"errors"
	"fmt"

	"menuagent/catalog"
)

// SnapshotState is a source of raw snapshot JSON.
type SnapshotState interface {
	Load(ctx context.Context) ([]byte, error)
}

// Loader adapts a SnapshotState into a catalog.Loader that decodes what it
// reads.
func Loader(state SnapshotState) catalog.Loader {
	return func(ctx context.Context) (catalog.Snapshot, error) {
		b, err := state.Load(ctx)
		if err != nil {
			return catalog.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
		}
		return catalog.Decode(b)
	}
}

// TestSnapshotState is a simple in-memory implementation for testing
type TestSnapshotState struct {
	data  []byte
	err   error
	Loads int
}

func NewTestSnapshotState(data []byte) *TestSnapshotState {
	return &TestSnapshotState{data: data}
}

func NewTestSnapshotStateWithError() *TestSnapshotState {
	return &TestSnapshotState{err: errors.New("not found")}
}

func (t *TestSnapshotState) Load(ctx context.Context) ([]byte, error) {
	t.Loads++
	if t.err != nil {
		return nil, t.err
	}
	return t.data, nil
}
