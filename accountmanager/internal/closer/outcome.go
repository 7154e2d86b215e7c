package closer

import (
	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
)

type Outcome int

const (
	OutcomeClosed Outcome = iota
	OutcomeSkippedNonZeroBalance
	OutcomeSkippedUnsupportedOwner
	// OutcomeAlreadyEmpty is a native account with nothing left to reclaim.
	OutcomeAlreadyEmpty
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClosed:
		return "closed"
	case OutcomeSkippedNonZeroBalance:
		return "skipped_non_zero_balance"
	case OutcomeSkippedUnsupportedOwner:
		return "skipped_unsupported_owner"
	case OutcomeAlreadyEmpty:
		return "already_empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Submitted reports whether a transaction was sent for the account.
func (o Outcome) Submitted() bool {
	return o == OutcomeClosed
}

// Result is the outcome of one close attempt.
type Result struct {
	Account   solana.PublicKey
	Kind      accounts.Kind
	Outcome   Outcome
	Signature solana.Signature
	// Lamports is the native balance transferred, TokenAmount the raw token
	// balance seen when a token account was inspected.
	Lamports    uint64
	TokenAmount uint64
}
