package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/jellydator/ttlcache/v3"
)

const (
	defaultMintCacheTTL = 1 * time.Hour
	defaultCommitment   = solanarpc.CommitmentConfirmed

	// Upper bound on keys per getMultipleAccounts request enforced by RPC nodes.
	maxMultipleAccounts = 100
)

var (
	ErrLoggerRequired = errors.New("logger is required")
	ErrRPCRequired    = errors.New("rpc client is required")
)

type RPCClient interface {
	GetTokenAccountsByOwner(ctx context.Context, owner solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, publicKey solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error)
	GetMultipleAccounts(ctx context.Context, accounts ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error)
}

type Config struct {
	Logger     *slog.Logger
	RPC        RPCClient
	Commitment solanarpc.CommitmentType

	MintCacheTTL time.Duration
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.RPC == nil {
		return ErrRPCRequired
	}
	if c.Commitment == "" {
		c.Commitment = defaultCommitment
	}
	if c.MintCacheTTL <= 0 {
		c.MintCacheTTL = defaultMintCacheTTL
	}
	return nil
}

// Aggregator lists every account a wallet owns: its SPL token accounts
// followed by the accounts returned for the wallet as owner program.
type Aggregator struct {
	log *slog.Logger
	cfg Config

	decimals *ttlcache.Cache[solana.PublicKey, uint8]
}

func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Aggregator{
		log: cfg.Logger,
		cfg: cfg,
		decimals: ttlcache.New(
			ttlcache.WithTTL[solana.PublicKey, uint8](cfg.MintCacheTTL),
			ttlcache.WithDisableTouchOnHit[solana.PublicKey, uint8](),
		),
	}, nil
}

// FetchAll returns the token accounts of owner first, then the other
// accounts, in the order the RPC node returned them. Pubkeys are unique in the
// result; a key seen twice keeps its first (token) entry.
func (a *Aggregator) FetchAll(ctx context.Context, owner solana.PublicKey) ([]Record, error) {
	tokenRecords, err := a.fetchTokenAccounts(ctx, owner)
	if err != nil {
		return nil, err
	}
	otherRecords, err := a.fetchOwnedAccounts(ctx, owner)
	if err != nil {
		return nil, err
	}

	seen := make(map[solana.PublicKey]struct{}, len(tokenRecords)+len(otherRecords))
	records := make([]Record, 0, len(tokenRecords)+len(otherRecords))
	for _, batch := range [][]Record{tokenRecords, otherRecords} {
		for _, r := range batch {
			if _, ok := seen[r.Pubkey]; ok {
				a.log.Debug("Dropping duplicate account", "pubkey", r.Pubkey, "owner", r.Owner)
				continue
			}
			seen[r.Pubkey] = struct{}{}
			records = append(records, r)
		}
	}

	a.log.Debug("Fetched accounts", "wallet", owner, "token", len(tokenRecords), "other", len(otherRecords), "total", len(records))
	return records, nil
}

func (a *Aggregator) fetchTokenAccounts(ctx context.Context, owner solana.PublicKey) ([]Record, error) {
	programID := solana.TokenProgramID
	out, err := a.cfg.RPC.GetTokenAccountsByOwner(ctx, owner,
		&solanarpc.GetTokenAccountsConfig{
			ProgramId: &programID,
		},
		&solanarpc.GetTokenAccountsOpts{
			Commitment: a.cfg.Commitment,
			Encoding:   solana.EncodingBase64,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts by owner: %w", err)
	}
	if out == nil {
		return nil, nil
	}

	records := make([]Record, 0, len(out.Value))
	for _, ta := range out.Value {
		if ta == nil {
			continue
		}
		r := Record{
			Pubkey:   ta.Pubkey,
			Owner:    solana.TokenProgramID,
			Kind:     KindToken,
			Lamports: ta.Account.Lamports,
		}
		if ta.Account.Data != nil {
			r.Data = ta.Account.Data.GetBinary()
		}
		acc, err := DecodeTokenAccount(r.Data)
		if err != nil {
			a.log.Warn("Failed to decode token account", "pubkey", ta.Pubkey, "error", err)
		} else {
			r.Token = &TokenPayload{
				Mint:      acc.Mint,
				Authority: acc.Owner,
				Amount:    acc.Amount,
				Native:    acc.IsNative != nil,
			}
		}
		records = append(records, r)
	}

	if err := a.resolveDecimals(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *Aggregator) fetchOwnedAccounts(ctx context.Context, owner solana.PublicKey) ([]Record, error) {
	out, err := a.cfg.RPC.GetProgramAccountsWithOpts(ctx, owner, &solanarpc.GetProgramAccountsOpts{
		Commitment: a.cfg.Commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get program accounts: %w", err)
	}

	records := make([]Record, 0, len(out))
	for _, ka := range out {
		if ka == nil || ka.Account == nil {
			continue
		}
		r := Record{
			Pubkey:   ka.Pubkey,
			Owner:    ka.Account.Owner,
			Kind:     KindOf(ka.Account.Owner),
			Lamports: ka.Account.Lamports,
		}
		if ka.Account.Data != nil {
			r.Data = ka.Account.Data.GetBinary()
		}
		records = append(records, r)
	}
	return records, nil
}

// resolveDecimals fills in mint decimals for the mints that are not cached,
// at most maxMultipleAccounts per call. A failed lookup leaves Decimals at
// zero; only context cancellation is returned.
func (a *Aggregator) resolveDecimals(ctx context.Context, records []Record) error {
	var missing []solana.PublicKey
	queued := make(map[solana.PublicKey]struct{})
	for _, r := range records {
		if r.Token == nil {
			continue
		}
		if a.decimals.Get(r.Token.Mint) != nil {
			continue
		}
		if _, ok := queued[r.Token.Mint]; ok {
			continue
		}
		queued[r.Token.Mint] = struct{}{}
		missing = append(missing, r.Token.Mint)
	}

	for start := 0; start < len(missing); start += maxMultipleAccounts {
		chunk := missing[start:min(start+maxMultipleAccounts, len(missing))]
		out, err := a.cfg.RPC.GetMultipleAccounts(ctx, chunk...)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("failed to get mint accounts: %w", ctxErr)
			}
			a.log.Warn("Failed to get mint accounts", "mints", len(chunk), "error", err)
			continue
		}
		for i, mintPK := range chunk {
			if out == nil || i >= len(out.Value) || out.Value[i] == nil || out.Value[i].Data == nil {
				a.log.Debug("Mint account not found", "mint", mintPK)
				continue
			}
			mint, err := DecodeMint(out.Value[i].Data.GetBinary())
			if err != nil {
				a.log.Warn("Failed to decode mint", "mint", mintPK, "error", err)
				continue
			}
			a.decimals.Set(mintPK, mint.Decimals, ttlcache.DefaultTTL)
		}
	}

	for i := range records {
		if records[i].Token == nil {
			continue
		}
		if item := a.decimals.Get(records[i].Token.Mint); item != nil {
			records[i].Token.Decimals = item.Value()
		}
	}
	return nil
}
