package accounts

import (
	"math"

	"github.com/gagliardetto/solana-go"
)

// Kind classifies an account by the program that owns it. Only token and
// native accounts can be closed.
type Kind int

const (
	// KindProgram is any account owned by a program other than the SPL token
	// program or the system program.
	KindProgram Kind = iota
	KindToken
	KindNative
)

func (k Kind) String() string {
	switch k {
	case KindToken:
		return "token"
	case KindNative:
		return "native"
	default:
		return "program"
	}
}

// Label is the human readable account type shown in listings.
func (k Kind) Label() string {
	switch k {
	case KindToken:
		return "SPL Token Account"
	case KindNative:
		return "Native SOL Account"
	default:
		return "Program Account"
	}
}

// KindOf maps an owner program id to an account kind.
func KindOf(owner solana.PublicKey) Kind {
	switch {
	case owner.Equals(solana.TokenProgramID):
		return KindToken
	case owner.Equals(solana.SystemProgramID):
		return KindNative
	default:
		return KindProgram
	}
}

// TokenPayload is the decoded content of an SPL token account.
type TokenPayload struct {
	Mint      solana.PublicKey
	Authority solana.PublicKey
	Amount    uint64
	Decimals  uint8
	Native    bool
}

// UIAmount is the token amount scaled by the mint decimals.
func (p *TokenPayload) UIAmount() float64 {
	if p == nil {
		return 0
	}
	return float64(p.Amount) / math.Pow10(int(p.Decimals))
}

// Record is one on-chain account owned by the wallet.
type Record struct {
	Pubkey   solana.PublicKey
	Owner    solana.PublicKey
	Kind     Kind
	Lamports uint64
	Data     []byte

	// Token is set for token accounts whose data decoded cleanly.
	Token *TokenPayload
}

// Balance is the displayable balance: the token UI amount, or zero for
// accounts that hold no tokens.
func (r Record) Balance() float64 {
	return r.Token.UIAmount()
}

// Find returns the record with the given pubkey.
func Find(records []Record, pubkey solana.PublicKey) (Record, bool) {
	for _, r := range records {
		if r.Pubkey.Equals(pubkey) {
			return r, true
		}
	}
	return Record{}, false
}

// CountByKind tallies records per kind.
func CountByKind(records []Record) map[Kind]int {
	counts := make(map[Kind]int, 3)
	for _, r := range records {
		counts[r.Kind]++
	}
	return counts
}
