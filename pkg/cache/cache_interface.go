package cache

import (
	"context"
	"time"
)

// Cache is the key/value contract shared by the Redis and in-memory
// implementations. Values are stored JSON-encoded.
type Cache interface {
	// Get unmarshals the value at key into dest.
	// found=false on a miss; dest is left untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value under key for ttl. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}
