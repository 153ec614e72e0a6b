package x402

import "fmt"

// CAIP-2 identifiers for the EVM networks this service can bind to.
const (
	NetworkBase        = "eip155:8453"
	NetworkEthereum    = "eip155:1"
	NetworkBaseSepolia = "eip155:84532"
	NetworkSepolia     = "eip155:11155111"
)

// ChainConfig holds per-network settlement parameters.
type ChainConfig struct {
	// Network is the CAIP-2 network identifier.
	Network string

	// USDCAddress is the official Circle USDC contract address.
	USDCAddress string

	// Decimals is the number of decimal places for USDC (always 6).
	Decimals int

	// EIP3009Name is the EIP-3009 domain parameter "name".
	EIP3009Name string

	// EIP3009Version is the EIP-3009 domain parameter "version".
	EIP3009Version string
}

var chainConfigs = map[string]ChainConfig{
	NetworkBase: {
		Network:        NetworkBase,
		USDCAddress:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	},
	NetworkEthereum: {
		Network:        NetworkEthereum,
		USDCAddress:    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		Decimals:       6,
		EIP3009Name:    "USD Coin",
		EIP3009Version: "2",
	},
	NetworkBaseSepolia: {
		Network:        NetworkBaseSepolia,
		USDCAddress:    "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	},
	NetworkSepolia: {
		Network:        NetworkSepolia,
		USDCAddress:    "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		Decimals:       6,
		EIP3009Name:    "USDC",
		EIP3009Version: "2",
	},
}

// GetChainConfig returns the settlement parameters for a CAIP-2 network
// identifier, or an error for networks this service does not know.
func GetChainConfig(network string) (ChainConfig, error) {
	cfg, ok := chainConfigs[network]
	if !ok {
		return ChainConfig{}, fmt.Errorf("unknown network: %s", network)
	}
	return cfg, nil
}
