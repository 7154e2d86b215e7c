package accounts_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/google/go-cmp/cmp"
	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
	"github.com/stretchr/testify/require"
)

func TestAccountManager_Accounts_NewAggregator(t *testing.T) {
	t.Parallel()

	validCfg := accounts.Config{
		Logger: logger,
		RPC:    &mockRPC{},
	}

	t.Run("valid config", func(t *testing.T) {
		a, err := accounts.NewAggregator(validCfg)
		require.NoError(t, err)
		require.NotNil(t, a)
	})

	mutate := func(cfg accounts.Config, f func(cfg *accounts.Config)) accounts.Config {
		cfgCopy := cfg
		f(&cfgCopy)
		return cfgCopy
	}

	tt := []struct {
		name    string
		cfg     accounts.Config
		wantErr error
	}{
		{
			name:    "missing logger",
			cfg:     mutate(validCfg, func(cfg *accounts.Config) { cfg.Logger = nil }),
			wantErr: accounts.ErrLoggerRequired,
		},
		{
			name:    "missing rpc",
			cfg:     mutate(validCfg, func(cfg *accounts.Config) { cfg.RPC = nil }),
			wantErr: accounts.ErrRPCRequired,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			a, err := accounts.NewAggregator(tc.cfg)
			require.ErrorIs(t, err, tc.wantErr)
			require.Nil(t, a)
		})
	}
}

func TestAccountManager_Accounts_FetchAll(t *testing.T) {
	t.Parallel()

	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	tokenA := solana.NewWallet().PublicKey()
	nativeB := solana.NewWallet().PublicKey()
	programC := solana.NewWallet().PublicKey()
	otherProgram := solana.NewWallet().PublicKey()

	t.Run("token accounts first then owned accounts", func(t *testing.T) {
		t.Parallel()

		tokenData := encodeTokenAccount(mint, owner, 5_000_000)
		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				require.Equal(t, owner, o)
				require.NotNil(t, conf.ProgramId)
				require.Equal(t, solana.TokenProgramID, *conf.ProgramId)
				require.Equal(t, solana.EncodingBase64, opts.Encoding)
				return tokenAccountsResult(t, tokenAccountFixture{Pubkey: tokenA, Lamports: 2039280, Data: tokenData}), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				require.Equal(t, owner, o)
				return solanarpc.GetProgramAccountsResult{
					{Pubkey: nativeB, Account: &solanarpc.Account{Owner: solana.SystemProgramID, Lamports: 1000}},
					{Pubkey: programC, Account: &solanarpc.Account{Owner: otherProgram, Lamports: 7, Data: solanarpc.DataBytesOrJSONFromBytes([]byte{1, 2, 3})}},
				}, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				require.Equal(t, []solana.PublicKey{mint}, keys)
				return mintsResult(encodeMint(6, 0)), nil
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		got, err := a.FetchAll(context.Background(), owner)
		require.NoError(t, err)

		want := []accounts.Record{
			{
				Pubkey:   tokenA,
				Owner:    solana.TokenProgramID,
				Kind:     accounts.KindToken,
				Lamports: 2039280,
				Data:     tokenData,
				Token:    &accounts.TokenPayload{Mint: mint, Authority: owner, Amount: 5_000_000, Decimals: 6},
			},
			{Pubkey: nativeB, Owner: solana.SystemProgramID, Kind: accounts.KindNative, Lamports: 1000},
			{Pubkey: programC, Owner: otherProgram, Kind: accounts.KindProgram, Lamports: 7, Data: []byte{1, 2, 3}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("records mismatch (-want +got):\n%s", diff)
		}
		require.InDelta(t, 5.0, got[0].Balance(), 1e-9)
	})

	t.Run("duplicate pubkeys keep the token entry", func(t *testing.T) {
		t.Parallel()

		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t, tokenAccountFixture{Pubkey: tokenA, Data: encodeTokenAccount(mint, owner, 0)}), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return solanarpc.GetProgramAccountsResult{
					{Pubkey: tokenA, Account: &solanarpc.Account{Owner: solana.SystemProgramID}},
					{Pubkey: nativeB, Account: &solanarpc.Account{Owner: solana.SystemProgramID}},
					{Pubkey: nativeB, Account: &solanarpc.Account{Owner: solana.SystemProgramID}},
				}, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				return mintsResult(encodeMint(0, 0)), nil
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		got, err := a.FetchAll(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, tokenA, got[0].Pubkey)
		require.Equal(t, accounts.KindToken, got[0].Kind)
		require.Equal(t, nativeB, got[1].Pubkey)

		seen := map[solana.PublicKey]bool{}
		for _, r := range got {
			require.False(t, seen[r.Pubkey], "duplicate pubkey %s", r.Pubkey)
			seen[r.Pubkey] = true
		}
	})

	t.Run("undecodable token account is kept without payload", func(t *testing.T) {
		t.Parallel()

		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t, tokenAccountFixture{Pubkey: tokenA, Data: []byte{0xff}}), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return nil, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				t.Fatal("no mints should be fetched")
				return nil, nil
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		got, err := a.FetchAll(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Nil(t, got[0].Token)
		require.Zero(t, got[0].Balance())
	})

	t.Run("mint decimals are cached between fetches", func(t *testing.T) {
		t.Parallel()

		var mintCalls atomic.Int32
		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t,
					tokenAccountFixture{Pubkey: tokenA, Data: encodeTokenAccount(mint, owner, 100)},
					tokenAccountFixture{Pubkey: nativeB, Data: encodeTokenAccount(mint, owner, 200)},
				), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return nil, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				mintCalls.Add(1)
				require.Len(t, keys, 1)
				return mintsResult(encodeMint(2, 0)), nil
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		for range 3 {
			got, err := a.FetchAll(context.Background(), owner)
			require.NoError(t, err)
			require.Len(t, got, 2)
			require.InDelta(t, 1.0, got[0].Balance(), 1e-9)
			require.InDelta(t, 2.0, got[1].Balance(), 1e-9)
		}
		require.Equal(t, int32(1), mintCalls.Load())
	})

	t.Run("missing mint leaves raw amount", func(t *testing.T) {
		t.Parallel()

		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t, tokenAccountFixture{Pubkey: tokenA, Data: encodeTokenAccount(mint, owner, 3)}), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return nil, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				return mintsResult(nil), nil
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		got, err := a.FetchAll(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, uint8(0), got[0].Token.Decimals)
		require.InDelta(t, 3.0, got[0].Balance(), 1e-9)
	})

	t.Run("mint lookups are split into batches of at most 100 keys", func(t *testing.T) {
		t.Parallel()

		const n = 150
		fixtures := make([]tokenAccountFixture, 0, n)
		for range n {
			fixtures = append(fixtures, tokenAccountFixture{
				Pubkey: solana.NewWallet().PublicKey(),
				Data:   encodeTokenAccount(solana.NewWallet().PublicKey(), owner, 1000),
			})
		}

		var (
			mu        sync.Mutex
			callSizes []int
		)
		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t, fixtures...), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return nil, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				mu.Lock()
				callSizes = append(callSizes, len(keys))
				mu.Unlock()
				if len(keys) > 100 {
					return nil, errors.New("Too many inputs provided; max 100")
				}
				data := make([][]byte, len(keys))
				for i := range data {
					data[i] = encodeMint(3, 0)
				}
				return mintsResult(data...), nil
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		got, err := a.FetchAll(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, got, n)
		for _, r := range got {
			require.NotNil(t, r.Token)
			require.Equal(t, uint8(3), r.Token.Decimals)
			require.InDelta(t, 1.0, r.Balance(), 1e-9)
		}
		require.Equal(t, []int{100, 50}, callSizes)
	})

	t.Run("mint lookup failure keeps the records", func(t *testing.T) {
		t.Parallel()

		var mintCalls atomic.Int32
		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t, tokenAccountFixture{Pubkey: tokenA, Data: encodeTokenAccount(mint, owner, 42)}), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return solanarpc.GetProgramAccountsResult{
					{Pubkey: nativeB, Account: &solanarpc.Account{Owner: solana.SystemProgramID, Lamports: 1000}},
				}, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				mintCalls.Add(1)
				return nil, errors.New("service unavailable")
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		got, err := a.FetchAll(context.Background(), owner)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, tokenA, got[0].Pubkey)
		require.NotNil(t, got[0].Token)
		require.Equal(t, uint64(42), got[0].Token.Amount)
		require.Zero(t, got[0].Token.Decimals)
		require.Equal(t, nativeB, got[1].Pubkey)

		// Failed mints are not cached, so the next fetch asks again.
		_, err = a.FetchAll(context.Background(), owner)
		require.NoError(t, err)
		require.Equal(t, int32(2), mintCalls.Load())
	})

	t.Run("cancelled mint lookup is returned", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t, tokenAccountFixture{Pubkey: tokenA, Data: encodeTokenAccount(mint, owner, 1)}), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return nil, nil
			},
			GetMultipleAccountsFunc: func(ctx context.Context, keys ...solana.PublicKey) (*solanarpc.GetMultipleAccountsResult, error) {
				cancel()
				return nil, ctx.Err()
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		_, err = a.FetchAll(ctx, owner)
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("token query failure is returned", func(t *testing.T) {
		t.Parallel()

		rpcErr := errors.New("connection refused")
		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return nil, rpcErr
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		got, err := a.FetchAll(context.Background(), owner)
		require.ErrorIs(t, err, rpcErr)
		require.Nil(t, got)
	})

	t.Run("program query failure is returned", func(t *testing.T) {
		t.Parallel()

		rpcErr := errors.New("rate limited")
		rpc := &mockRPC{
			GetTokenAccountsByOwnerFunc: func(ctx context.Context, o solana.PublicKey, conf *solanarpc.GetTokenAccountsConfig, opts *solanarpc.GetTokenAccountsOpts) (*solanarpc.GetTokenAccountsResult, error) {
				return tokenAccountsResult(t), nil
			},
			GetProgramAccountsWithOptsFunc: func(ctx context.Context, o solana.PublicKey, opts *solanarpc.GetProgramAccountsOpts) (solanarpc.GetProgramAccountsResult, error) {
				return nil, rpcErr
			},
		}

		a, err := accounts.NewAggregator(accounts.Config{Logger: logger, RPC: rpc})
		require.NoError(t, err)

		_, err = a.FetchAll(context.Background(), owner)
		require.ErrorIs(t, err, rpcErr)
	})
}
