package config

import (
	"fmt"
	"os"
)

const (
	EnvMainnetBeta = "mainnet-beta"
	EnvMainnet     = "mainnet"
	EnvTestnet     = "testnet"
	EnvDevnet      = "devnet"
	EnvLocalnet    = "localnet"

	// EnvRPCURLOverride replaces the RPC URL of whichever environment is selected.
	EnvRPCURLOverride = "SOLANA_RPC_URL"
)

var (
	ErrInvalidEnvironment = fmt.Errorf("invalid environment")
)

type NetworkConfig struct {
	Moniker string
	RPCURL  string
	WSURL   string
}

func NetworkConfigForEnv(env string) (*NetworkConfig, error) {
	var config *NetworkConfig
	switch env {
	case EnvMainnetBeta, EnvMainnet:
		config = &NetworkConfig{
			Moniker: EnvMainnetBeta,
			RPCURL:  MainnetSolanaRPCURL,
			WSURL:   MainnetSolanaWSURL,
		}
	case EnvTestnet:
		config = &NetworkConfig{
			Moniker: EnvTestnet,
			RPCURL:  TestnetSolanaRPCURL,
			WSURL:   TestnetSolanaWSURL,
		}
	case EnvDevnet:
		config = &NetworkConfig{
			Moniker: EnvDevnet,
			RPCURL:  DevnetSolanaRPCURL,
			WSURL:   DevnetSolanaWSURL,
		}
	case EnvLocalnet:
		config = &NetworkConfig{
			Moniker: EnvLocalnet,
			RPCURL:  LocalnetSolanaRPCURL,
			WSURL:   LocalnetSolanaWSURL,
		}
	default:
		return nil, fmt.Errorf("%w %q, must be one of: %s, %s, %s, %s", ErrInvalidEnvironment, env, EnvMainnetBeta, EnvTestnet, EnvDevnet, EnvLocalnet)
	}

	rpcURL := os.Getenv(EnvRPCURLOverride)
	if rpcURL != "" {
		config.RPCURL = rpcURL
	}

	return config, nil
}
