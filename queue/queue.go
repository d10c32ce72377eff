// Package queue provides the offline operation queue consulted when the
// auth transport is known to be unreachable. Items are opaque to the
// store; the engine decides what to park and how to replay it.
package queue

import (
	"context"
	"time"
)

// Item is one parked operation.
type Item struct {
	Kind      string            `json:"kind"`
	UserID    string            `json:"user_id,omitempty"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store persists items until the transport is reachable again. Drain
// removes and returns everything queued, oldest first.
type Store interface {
	Enqueue(ctx context.Context, item Item) error
	Drain(ctx context.Context) ([]Item, error)
}
