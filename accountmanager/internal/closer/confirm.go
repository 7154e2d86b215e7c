package closer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrTransactionFailed   = errors.New("transaction failed")
	ErrSignatureNotVisible = errors.New("signature not yet visible")
)

// waitForProcessed polls the signature status until the cluster reports the
// transaction at processed commitment or higher, the transaction errors, or
// the confirm timeout elapses.
func (c *Closer) waitForProcessed(ctx context.Context, sig solana.Signature) error {
	start := time.Now()
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		resp, err := c.cfg.RPC.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return struct{}{}, err
		}
		if resp == nil || len(resp.Value) == 0 || resp.Value[0] == nil {
			return struct{}{}, ErrSignatureNotVisible
		}
		status := resp.Value[0]
		if status.Err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err))
		}
		switch status.ConfirmationStatus {
		case solanarpc.ConfirmationStatusProcessed, solanarpc.ConfirmationStatusConfirmed, solanarpc.ConfirmationStatusFinalized:
			c.log.Debug("Transaction processed", "signature", sig, "status", status.ConfirmationStatus, "duration", time.Since(start))
			return struct{}{}, nil
		}
		return struct{}{}, ErrSignatureNotVisible
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.cfg.ConfirmPollInterval)),
		backoff.WithMaxElapsedTime(c.cfg.ConfirmTimeout),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}
		return fmt.Errorf("transaction %s not processed after %s: %w", sig, time.Since(start).Truncate(time.Millisecond), err)
	}
	return nil
}
