package storageapi

import (
	"time"

	"github.com/solana-token-factory/factory/pkg/config"
	"github.com/solana-token-factory/factory/pkg/config/env"
	"github.com/solana-token-factory/factory/pkg/config/memory"
	"github.com/solana-token-factory/factory/pkg/config/wrapper"
)

const (
	envConfigPrefix = "STORAGE_CLIENT_"

	BaseUrlConfigEnvName = envConfigPrefix + "BASE_URL"
	defaultBaseUrl       = "http://localhost:8080"

	RequestTimeoutConfigEnvName = envConfigPrefix + "REQUEST_TIMEOUT"
	defaultRequestTimeout       = 15 * time.Second

	MaxAttemptsConfigEnvName = envConfigPrefix + "MAX_ATTEMPTS"
	defaultMaxAttempts       = 3

	BaseBackoffConfigEnvName = envConfigPrefix + "BASE_BACKOFF"
	defaultBaseBackoff       = 500 * time.Millisecond
)

type conf struct {
	baseUrl        config.String
	requestTimeout config.Duration
	maxAttempts    config.Uint64
	baseBackoff    config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			baseUrl:        env.NewStringConfig(BaseUrlConfigEnvName, defaultBaseUrl),
			requestTimeout: env.NewDurationConfig(RequestTimeoutConfigEnvName, defaultRequestTimeout),
			maxAttempts:    env.NewUint64Config(MaxAttemptsConfigEnvName, defaultMaxAttempts),
			baseBackoff:    env.NewDurationConfig(BaseBackoffConfigEnvName, defaultBaseBackoff),
		}
	}
}

// WithBaseUrl returns the environment configuration pointed at baseUrl
func WithBaseUrl(baseUrl string) ConfigProvider {
	return func() *conf {
		c := WithEnvConfigs()()
		c.baseUrl = wrapper.NewStringConfig(memory.NewConfig(baseUrl), defaultBaseUrl)
		return c
	}
}

type testOverrides struct {
	baseUrl     string
	maxAttempts uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			baseUrl:        wrapper.NewStringConfig(memory.NewConfig(overrides.baseUrl), defaultBaseUrl),
			requestTimeout: wrapper.NewDurationConfig(memory.NewConfig(time.Second), defaultRequestTimeout),
			maxAttempts:    wrapper.NewUint64Config(memory.NewConfig(overrides.maxAttempts), defaultMaxAttempts),
			baseBackoff:    wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), defaultBaseBackoff),
		}
	}
}
