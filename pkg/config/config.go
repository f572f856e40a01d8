package config

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrNoValue is returned by sources that have nothing set for a config,
	// which makes typed wrappers fall back to their default
	ErrNoValue = errors.New("config: no value set")

	// ErrShutdown indicates the use of a Config after calling Shutdown
	ErrShutdown = errors.New("config: shutdown")
)

// Config is an untyped configuration source
type Config interface {
	// Get returns the latest raw value. Sources backed by text return []byte.
	Get(ctx context.Context) (interface{}, error)

	Shutdown()
}

// Typed is a Config resolved to a value of type T. Get never fails and
// yields the last known good value when the source errors.
type Typed[T any] interface {
	Get(ctx context.Context) T
	GetSafe(ctx context.Context) (T, error)
	Shutdown()
}

type (
	Bool     = Typed[bool]
	Duration = Typed[time.Duration]
	Int64    = Typed[int64]
	Uint64   = Typed[uint64]
	String   = Typed[string]
)
