package repo

import (
	"context"
	"errors"
	"time"
)

var ErrEmptyJTI = errors.New("empty session id")

// Revocations remembers signed-out sessions until their tokens would have
// expired anyway.
type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Purge(ctx context.Context, now time.Time) (int64, error)
	Ping(ctx context.Context) error
}
