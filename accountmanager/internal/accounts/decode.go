package accounts

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go/programs/token"
)

const (
	tokenAccountSize = 165
	mintSize         = 82
)

var ErrShortAccountData = errors.New("account data too short")

// DecodeTokenAccount decodes SPL token account data.
func DecodeTokenAccount(data []byte) (*token.Account, error) {
	if len(data) < tokenAccountSize {
		return nil, fmt.Errorf("%w: token account has %d bytes, want %d", ErrShortAccountData, len(data), tokenAccountSize)
	}
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("failed to decode token account: %w", err)
	}
	return &acc, nil
}

// DecodeMint decodes SPL token mint data.
func DecodeMint(data []byte) (*token.Mint, error) {
	if len(data) < mintSize {
		return nil, fmt.Errorf("%w: mint has %d bytes, want %d", ErrShortAccountData, len(data), mintSize)
	}
	var mint token.Mint
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, fmt.Errorf("failed to decode mint: %w", err)
	}
	return &mint, nil
}
