package utils

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"
)

var objectIDCounter uint32

// GenerateID generates a 12-byte ObjectID-like string (24 hex characters).
// The first 4 bytes are the creation time, so IDs sort roughly by age.
func GenerateID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], uint32(time.Now().Unix()))
	_, _ = rand.Read(b[4:9])
	c := atomic.AddUint32(&objectIDCounter, 1) % 0xFFFFFF
	b[9] = byte(c >> 16)
	b[10] = byte(c >> 8)
	b[11] = byte(c)
	return hex.EncodeToString(b[:])
}

// ShortID returns the last 8 hex characters of a fresh ID, enough to group
// the log lines of one request.
func ShortID() string {
	id := GenerateID()
	return id[len(id)-8:]
}

type debugIDKey struct{}

// WithDebugID attaches a debug ID to ctx. Log lines and raw chunk dumps
// produced under ctx are tagged with it.
func WithDebugID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, debugIDKey{}, id)
}

// DebugID returns the debug ID carried by ctx, or "".
func DebugID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(debugIDKey{}).(string)
	return id
}
