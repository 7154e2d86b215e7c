package closer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/account-manager/accountmanager/internal/notify"
	"github.com/malbeclabs/account-manager/accountmanager/internal/wallet"
)

var (
	ErrLoggerRequired   = errors.New("logger is required")
	ErrRPCRequired      = errors.New("rpc client is required")
	ErrNotifierRequired = errors.New("notifier is required")
)

const (
	defaultCommitment          = solanarpc.CommitmentConfirmed
	defaultConfirmTimeout      = 90 * time.Second
	defaultConfirmPollInterval = 500 * time.Millisecond
)

// RPCClient is the subset of *solanarpc.Client the closer depends on. It is
// also the network handed to the wallet for submission.
type RPCClient interface {
	wallet.Network

	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *solanarpc.GetAccountInfoOpts) (*solanarpc.GetAccountInfoResult, error)
	GetBalance(ctx context.Context, account solana.PublicKey, commitment solanarpc.CommitmentType) (*solanarpc.GetBalanceResult, error)
	GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, transactionSignatures ...solana.Signature) (*solanarpc.GetSignatureStatusesResult, error)
}

// Wallet signs and submits transactions on behalf of the connected wallet.
type Wallet interface {
	PublicKey() solana.PublicKey
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
	SendTransaction(ctx context.Context, tx *solana.Transaction, network wallet.Network) (solana.Signature, error)
}

type Config struct {
	Logger   *slog.Logger
	RPC      RPCClient
	Notifier notify.Notifier

	// Commitment used for balance, account and blockhash reads.
	Commitment          solanarpc.CommitmentType
	ConfirmTimeout      time.Duration
	ConfirmPollInterval time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.RPC == nil {
		return ErrRPCRequired
	}
	if c.Notifier == nil {
		return ErrNotifierRequired
	}
	if c.Commitment == "" {
		c.Commitment = defaultCommitment
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = defaultConfirmTimeout
	}
	if c.ConfirmPollInterval <= 0 {
		c.ConfirmPollInterval = defaultConfirmPollInterval
	}
	return nil
}
