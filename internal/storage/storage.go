package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Keys for the three independent durable records. Absence or corruption of
// one must never affect the other two.
const (
	KeyQuestionHistory = "question_history"
	KeyUserProgress    = "user_progress"
	KeySettings        = "settings"
)

// Store is the durable key/value contract the engine persists through.
// Values are serialized blobs; the store does not interpret them.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
