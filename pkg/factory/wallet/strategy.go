package wallet

// Strategy is how a transaction is handed to a wallet brand
type Strategy struct {
	Brand Brand

	// Detect finds the brand's injected provider in the environment
	Detect func(Environment) (InjectedProvider, bool)

	// RequiresPartialSign wallets must receive the transaction already signed
	// by every non wallet signer.
	RequiresPartialSign bool
}

// StrategyTable maps a wallet brand to its submission strategy
type StrategyTable map[Brand]Strategy

func injected(brand Brand) func(Environment) (InjectedProvider, bool) {
	return func(env Environment) (InjectedProvider, bool) {
		if env == nil {
			return nil, false
		}
		return env.InjectedProvider(brand)
	}
}

func DefaultStrategyTable() StrategyTable {
	return StrategyTable{
		BrandPhantom: {
			Brand:               BrandPhantom,
			Detect:              injected(BrandPhantom),
			RequiresPartialSign: true,
		},
		BrandSolflare: {
			Brand:               BrandSolflare,
			Detect:              injected(BrandSolflare),
			RequiresPartialSign: true,
		},
	}
}

// Lookup returns the strategy for brand. Unknown brands are only reachable
// through the generic adapter.
func (t StrategyTable) Lookup(brand Brand) Strategy {
	if strategy, ok := t[brand]; ok {
		return strategy
	}

	return Strategy{
		Brand: brand,
		Detect: func(Environment) (InjectedProvider, bool) {
			return nil, false
		},
		RequiresPartialSign: true,
	}
}
