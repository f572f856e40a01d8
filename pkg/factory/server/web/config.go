package web

import (
	"time"

	"github.com/solana-token-factory/factory/pkg/config"
	"github.com/solana-token-factory/factory/pkg/config/env"
	"github.com/solana-token-factory/factory/pkg/config/memory"
	"github.com/solana-token-factory/factory/pkg/config/wrapper"
)

const (
	envConfigPrefix = "STORAGE_API_"

	RateLimitMaxRequestsConfigEnvName = envConfigPrefix + "RATE_LIMIT_MAX_REQUESTS"
	defaultRateLimitMaxRequests       = 30

	RateLimitWindowConfigEnvName = envConfigPrefix + "RATE_LIMIT_WINDOW"
	defaultRateLimitWindow       = time.Minute

	AllowedOriginConfigEnvName = envConfigPrefix + "ALLOWED_ORIGIN"
	defaultAllowedOrigin       = "*"

	MaxRequestBodySizeConfigEnvName = envConfigPrefix + "MAX_REQUEST_BODY_SIZE"
	defaultMaxRequestBodySize       = 64 * 1024
)

type conf struct {
	rateLimitMaxRequests config.Uint64
	rateLimitWindow      config.Duration
	allowedOrigin        config.String
	maxRequestBodySize   config.Int64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			rateLimitMaxRequests: env.NewUint64Config(RateLimitMaxRequestsConfigEnvName, defaultRateLimitMaxRequests),
			rateLimitWindow:      env.NewDurationConfig(RateLimitWindowConfigEnvName, defaultRateLimitWindow),
			allowedOrigin:        env.NewStringConfig(AllowedOriginConfigEnvName, defaultAllowedOrigin),
			maxRequestBodySize:   env.NewInt64Config(MaxRequestBodySizeConfigEnvName, defaultMaxRequestBodySize),
		}
	}
}

type testOverrides struct {
	rateLimitMaxRequests uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			rateLimitMaxRequests: wrapper.NewUint64Config(memory.NewConfig(overrides.rateLimitMaxRequests), defaultRateLimitMaxRequests),
			rateLimitWindow:      wrapper.NewDurationConfig(memory.NewConfig(defaultRateLimitWindow), defaultRateLimitWindow),
			allowedOrigin:        wrapper.NewStringConfig(memory.NewConfig(defaultAllowedOrigin), defaultAllowedOrigin),
			maxRequestBodySize:   wrapper.NewInt64Config(memory.NewConfig(int64(defaultMaxRequestBodySize)), defaultMaxRequestBodySize),
		}
	}
}
