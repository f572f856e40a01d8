// Package env provides configs read from environment variables. Values are
// looked up on every Get, so changes to the environment are picked up
// without a restart.
package env

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/solana-token-factory/factory/pkg/config"
	"github.com/solana-token-factory/factory/pkg/config/wrapper"
)

type variable struct {
	name string
}

// NewConfig returns a raw config for the upper cased key. Values are returned
// as []byte with surrounding whitespace removed.
func NewConfig(key string) config.Config {
	return &variable{name: strings.ToUpper(key)}
}

// Get implements config.Config.Get
func (v *variable) Get(_ context.Context) (interface{}, error) {
	value := strings.TrimSpace(os.Getenv(v.name))
	if len(value) == 0 {
		return nil, config.ErrNoValue
	}
	return []byte(value), nil
}

// Shutdown implements config.Config.Shutdown
func (v *variable) Shutdown() {}

func NewInt64Config(key string, defaultValue int64) config.Int64 {
	return wrapper.NewInt64Config(NewConfig(key), defaultValue)
}

func NewUint64Config(key string, defaultValue uint64) config.Uint64 {
	return wrapper.NewUint64Config(NewConfig(key), defaultValue)
}

func NewStringConfig(key string, defaultValue string) config.String {
	return wrapper.NewStringConfig(NewConfig(key), defaultValue)
}

func NewBoolConfig(key string, defaultValue bool) config.Bool {
	return wrapper.NewBoolConfig(NewConfig(key), defaultValue)
}

func NewDurationConfig(key string, defaultValue time.Duration) config.Duration {
	return wrapper.NewDurationConfig(NewConfig(key), defaultValue)
}
