package creator

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
	envConfigPrefix = "TOKEN_CREATOR_"

	TreasuryAddressConfigEnvName = envConfigPrefix + "TREASURY_ADDRESS"
	defaultTreasuryAddress       = "7VHUFJHWu2JrrhUbPj1Xr91iqZPL1UJ6E4wjtMFcKQoW"

	ComputeUnitLimitConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_LIMIT"
	defaultComputeUnitLimit       = uint64(transaction.DefaultComputeUnitLimit)

	ComputeUnitPriceConfigEnvName = envConfigPrefix + "COMPUTE_UNIT_PRICE"
	defaultComputeUnitPrice       = transaction.DefaultComputeUnitPrice

	PollAttemptsConfigEnvName = envConfigPrefix + "POLL_ATTEMPTS"
	defaultPollAttempts       = uint64(confirmation.DefaultAttempts)

	PollIntervalConfigEnvName = envConfigPrefix + "POLL_INTERVAL"
	defaultPollInterval       = confirmation.DefaultInterval
)

type conf struct {
	treasuryAddress  config.String
	computeUnitLimit config.Uint64
	computeUnitPrice config.Uint64
	pollAttempts     config.Uint64
	pollInterval     config.Duration
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			treasuryAddress:  env.NewStringConfig(TreasuryAddressConfigEnvName, defaultTreasuryAddress),
			computeUnitLimit: env.NewUint64Config(ComputeUnitLimitConfigEnvName, defaultComputeUnitLimit),
			computeUnitPrice: env.NewUint64Config(ComputeUnitPriceConfigEnvName, defaultComputeUnitPrice),
			pollAttempts:     env.NewUint64Config(PollAttemptsConfigEnvName, defaultPollAttempts),
			pollInterval:     env.NewDurationConfig(PollIntervalConfigEnvName, defaultPollInterval),
		}
	}
}

type testOverrides struct {
	treasuryAddress string
	pollAttempts    uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			treasuryAddress:  wrapper.NewStringConfig(memory.NewConfig(overrides.treasuryAddress), defaultTreasuryAddress),
			computeUnitLimit: wrapper.NewUint64Config(memory.NewConfig(defaultComputeUnitLimit), defaultComputeUnitLimit),
			computeUnitPrice: wrapper.NewUint64Config(memory.NewConfig(defaultComputeUnitPrice), defaultComputeUnitPrice),
			pollAttempts:     wrapper.NewUint64Config(memory.NewConfig(overrides.pollAttempts), defaultPollAttempts),
			pollInterval:     wrapper.NewDurationConfig(memory.NewConfig(time.Millisecond), defaultPollInterval),
		}
	}
}
