package config

const (
	// Mainnet-beta constants.
	MainnetSolanaRPCURL = "https://api.mainnet-beta.solana.com"
	MainnetSolanaWSURL  = "wss://api.mainnet-beta.solana.com"

	// Testnet constants.
	TestnetSolanaRPCURL = "https://api.testnet.solana.com"
	TestnetSolanaWSURL  = "wss://api.testnet.solana.com"

	// Devnet constants.
	DevnetSolanaRPCURL = "https://api.devnet.solana.com"
	DevnetSolanaWSURL  = "wss://api.devnet.solana.com"

	// Localnet constants, matching solana-test-validator defaults.
	LocalnetSolanaRPCURL = "http://127.0.0.1:8899"
	LocalnetSolanaWSURL  = "ws://127.0.0.1:8900"

	// DefaultKeypairPath is where the solana CLI writes the default keypair,
	// relative to the user's home directory.
	DefaultKeypairPath = ".config/solana/id.json"
)
