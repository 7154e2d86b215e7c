package closer

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/account-manager/accountmanager/internal/metrics"
)

// Stage names the step of a close attempt that failed.
type Stage string

const (
	StageAccountInfo Stage = "account_info"
	StageDecode      Stage = "decode"
	StageBalance     Stage = "balance"
	StageBlockhash   Stage = "blockhash"
	StageBuild       Stage = "build"
	StageSign        Stage = "sign"
	StageSend        Stage = "send"
	StageConfirm     Stage = "confirm"
)

// ErrorType is the metrics error type recorded for a failure at s.
func (s Stage) ErrorType() string {
	switch s {
	case StageAccountInfo:
		return metrics.ErrorTypeCloseAccountInfo
	case StageDecode:
		return metrics.ErrorTypeCloseDecode
	case StageBalance:
		return metrics.ErrorTypeCloseBalance
	case StageBlockhash:
		return metrics.ErrorTypeCloseBlockhash
	case StageBuild:
		return metrics.ErrorTypeCloseBuild
	case StageSign:
		return metrics.ErrorTypeCloseSign
	case StageSend:
		return metrics.ErrorTypeCloseSend
	case StageConfirm:
		return metrics.ErrorTypeCloseConfirm
	default:
		return metrics.ErrorTypeCloseUnclassified
	}
}

type ClosureError struct {
	Account solana.PublicKey
	Stage   Stage
	Err     error
}

func (e *ClosureError) Error() string {
	return fmt.Sprintf("failed to close account %s at %s: %v", e.Account, e.Stage, e.Err)
}

func (e *ClosureError) Unwrap() error {
	return e.Err
}
