// Package replay models the opaque, pull-based, resumable packet stream
// collaborator this system consumes (the Oracle replay store and its native
// binary serializer, out of scope per the system boundary). Consumers see
// only Packet and Stream.
package replay

import (
	"context"
	"time"
)

// Packet is a single opaque unit from the replay store: an undeserialized
// payload plus the store's own stored-at timestamp.
type Packet struct {
	StoredAt time.Time
	Raw      []byte
}

// Stream yields Packets one at a time. Next blocks until a packet is
// available, the context is cancelled, or the stream is exhausted (io.EOF).
// Close releases the underlying source connection; it must be safe to call
// even if Next is blocked, and callers must be able to resume a stream after
// a prior Close/disconnect without losing packets (at-least-once delivery).
type Stream interface {
	Next(ctx context.Context) (Packet, error)
	Close() error
}
