package storage

import (
	"context"

	"repo-pulse/internal/history"
)

// Backend persists the whole History document.
// Load returns ErrEmpty when the backing medium holds no document yet.
// Implementations read and rewrite the document wholesale; there is no locking
// across processes, a single writer per invocation is assumed.
type Backend interface {
	Load(ctx context.Context) (history.History, error)
	Save(ctx context.Context, h history.History) error
}
