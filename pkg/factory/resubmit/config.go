package resubmit

import (
	"time"

	"github.com/solana-token-factory/factory/pkg/config"
	"github.com/solana-token-factory/factory/pkg/config/env"
	"github.com/solana-token-factory/factory/pkg/config/memory"
	"github.com/solana-token-factory/factory/pkg/config/wrapper"
	"github.com/solana-token-factory/factory/pkg/factory/confirmation"
	"github.com/solana-token-factory/factory/pkg/factory/transaction"
)

const (
	envConfigPrefix = "RESUBMIT_"

	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = uint64(transaction.RetryComputeUnitLimit)

	PollAttemptsConfigEnvName = envConfigPrefix + "POLL_ATTEMPTS"
	defaultPollAttempts       = uint64(confirmation.DefaultAttempts)

	PollIntervalConfigEnvName = envConfigPrefix + "POLL_INTERVAL"
	defaultPollInterval       = confirmation.DefaultInterval
)

type conf struct {
	computeUnitLimit config.Uint64
	pollAttempts     config.Uint64
	pollInterval     config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			computeUnitLimit: env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			pollAttempts:     env.NewUint64Config(PollAttemptsConfigEnvName, defaultPollAttempts),
			pollInterval:     env.NewDurationConfig(PollIntervalConfigEnvName, defaultPollInterval),
		}
	}
}

type testOverrides struct {
	pollAttempts     uint64
	computeUnitLimit uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	computeUnitLimit := overrides.computeUnitLimit
	if computeUnitLimit == 0 {
		computeUnitLimit = defaultComputeUnitLimit
	}

	return func() *conf {
		return &conf{
			computeUnitLimit: wrapper.NewUint64Config(memory.NewConfig(computeUnitLimit), defaultComputeUnitLimit),
			pollAttempts:     wrapper.NewUint64Config(memory.NewConfig(overrides.pollAttempts), defaultPollAttempts),
			pollInterval:     wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), defaultPollInterval),
		}
	}
}
