package solana

import (
	"strings"

	"github.com/pkg/errors"
)

type Environment string

const (
	EnvironmentDev  Environment = "https://api.devnet.solana.com"
	EnvironmentTest Environment = "https://api.testnet.solana.com"
	EnvironmentProd Environment = "https://api.mainnet-beta.solana.com"
)

// EnvironmentFromName maps a cluster name, or a full RPC URL, to an Environment.
func EnvironmentFromName(name string) (Environment, error) {
	switch name {
	case "devnet", "dev":
		return EnvironmentDev, nil
	case "testnet", "test":
		return EnvironmentTest, nil
	case "mainnet", "mainnet-beta", "prod", "":
		return EnvironmentProd, nil
	}

	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return Environment(name), nil
	}

	return "", errors.Errorf("unknown solana environment: %s", name)
}
