// Package docstore is the realtime key-value document tree mirrored from device
// telemetry. Values are JSON-shaped (map[string]any, []any, float64, string, bool, nil)
// and addressed by slash-separated paths such as "status/battery".
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Decode when nothing is stored at the path.
var ErrNotFound = errors.New("docstore: not found")

// Listener receives the value stored at a watched path after every change
// touching it, and once immediately on subscription.
type Listener func(value any)

// Store is the document store contract used by ingest and the dashboard.
type Store interface {
	// Get returns the subtree at path, or nil if absent.
	Get(ctx context.Context, path string) (any, error)
	// Set replaces the subtree at path. A nil value deletes it.
	Set(ctx context.Context, path string, value any) error
	// Update merges the given children into the subtree at path. Keys may be
	// nested paths themselves.
	Update(ctx context.Context, path string, values map[string]any) error
	// OnValue subscribes to changes at or below path. The returned func
	// unsubscribes; cancelling ctx does the same.
	OnValue(ctx context.Context, path string, listener Listener) (func(), error)
}

// Decode reads path from store into dst via a JSON round trip.
func Decode(ctx context.Context, store Store, path string, dst any) error {
	value, err := store.Get(ctx, path)
	if err != nil {
		return err
	}
	if value == nil {
		return ErrNotFound
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("docstore: encode %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("docstore: decode %s: %w", path, err)
	}
	return nil
}
