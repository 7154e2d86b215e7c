package accounts_test

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
	"github.com/stretchr/testify/require"
)

func TestAccountManager_Accounts_KindOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, accounts.KindToken, accounts.KindOf(solana.TokenProgramID))
	require.Equal(t, accounts.KindNative, accounts.KindOf(solana.SystemProgramID))
	require.Equal(t, accounts.KindProgram, accounts.KindOf(solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")))
	require.Equal(t, accounts.KindProgram, accounts.KindOf(solana.NewWallet().PublicKey()))

	require.Equal(t, "SPL Token Account", accounts.KindToken.Label())
	require.Equal(t, "Native SOL Account", accounts.KindNative.Label())
	require.Equal(t, "Program Account", accounts.KindProgram.Label())
	require.Equal(t, "native", accounts.KindNative.String())
}

func TestAccountManager_Accounts_Balance(t *testing.T) {
	t.Parallel()

	t.Run("token with decimals", func(t *testing.T) {
		r := accounts.Record{Kind: accounts.KindToken, Token: &accounts.TokenPayload{Amount: 1_500_000, Decimals: 6}}
		require.InDelta(t, 1.5, r.Balance(), 1e-9)
	})

	t.Run("token without decimals", func(t *testing.T) {
		r := accounts.Record{Kind: accounts.KindToken, Token: &accounts.TokenPayload{Amount: 5}}
		require.InDelta(t, 5.0, r.Balance(), 1e-9)
	})

	t.Run("native account reports zero", func(t *testing.T) {
		r := accounts.Record{Kind: accounts.KindNative, Lamports: 1000}
		require.Zero(t, r.Balance())
	})

	t.Run("undecodable token account reports zero", func(t *testing.T) {
		r := accounts.Record{Kind: accounts.KindToken}
		require.Zero(t, r.Balance())
	})
}

func TestAccountManager_Accounts_FindAndCount(t *testing.T) {
	t.Parallel()

	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	records := []accounts.Record{
		{Pubkey: a, Kind: accounts.KindToken},
		{Pubkey: b, Kind: accounts.KindNative},
	}

	got, ok := accounts.Find(records, b)
	require.True(t, ok)
	require.Equal(t, accounts.KindNative, got.Kind)

	_, ok = accounts.Find(records, solana.NewWallet().PublicKey())
	require.False(t, ok)

	counts := accounts.CountByKind(records)
	require.Equal(t, 1, counts[accounts.KindToken])
	require.Equal(t, 1, counts[accounts.KindNative])
	require.Equal(t, 0, counts[accounts.KindProgram])
}

func TestAccountManager_Accounts_Decode(t *testing.T) {
	t.Parallel()

	mint := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()

	acc, err := accounts.DecodeTokenAccount(encodeTokenAccount(mint, authority, 42))
	require.NoError(t, err)
	require.Equal(t, mint, acc.Mint)
	require.Equal(t, authority, acc.Owner)
	require.Equal(t, uint64(42), acc.Amount)
	require.Nil(t, acc.IsNative)

	_, err = accounts.DecodeTokenAccount(make([]byte, 10))
	require.ErrorIs(t, err, accounts.ErrShortAccountData)

	m, err := accounts.DecodeMint(encodeMint(9, 1000))
	require.NoError(t, err)
	require.Equal(t, uint8(9), m.Decimals)
	require.Equal(t, uint64(1000), m.Supply)

	_, err = accounts.DecodeMint(nil)
	require.ErrorIs(t, err, accounts.ErrShortAccountData)
}
