package types

import "fmt"

// AssetIdentifier identifies one ERC-20 token on a chain.
type AssetIdentifier struct {
	ChainID  int    `yaml:"chain_id" json:"chain_id"`
	Address  string `yaml:"address" json:"address"`
	Ticker   string `yaml:"ticker" json:"ticker"`
	Decimals int    `yaml:"decimals" json:"decimals"`
}

// TradingPair identifies one tradeable pool on a decentralised exchange.
//
// The struct is comparable, so it can be used directly as a map key.
// Two pairs are considered the same pair iff all identity fields match.
type TradingPair struct {
	Base        AssetIdentifier `yaml:"base" json:"base"`
	Quote       AssetIdentifier `yaml:"quote" json:"quote"`
	PoolAddress string          `yaml:"pool_address" json:"pool_address"`
	// InternalID is a stable numeric id assigned when the universe is constructed.
	// Used for deterministic ordering of results.
	InternalID int     `yaml:"internal_id" json:"internal_id"`
	Fee        float64 `yaml:"fee" json:"fee"`
}

// Ticker returns the human readable pair ticker, e.g. "WETH-USDC".
func (p TradingPair) Ticker() string {
	return fmt.Sprintf("%s-%s", p.Base.Ticker, p.Quote.Ticker)
}
