// Package roadmap defines the storage contract for persisted planner search
// graphs. The blob format is owned entirely by the planning algorithms; this
// package only moves opaque bytes.
package roadmap

import "context"

// Store reads and writes serialised planner graphs. Implementations must be
// safe for concurrent use.
type Store interface {
	// Save writes data under path, overwriting any existing blob.
	Save(ctx context.Context, path string, data []byte) error
	// Load reads the blob stored under path.
	Load(ctx context.Context, path string) ([]byte, error)
}
