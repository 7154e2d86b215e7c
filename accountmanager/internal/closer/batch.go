package closer

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
)

// Report collects the results of a batch, in the order attempted.
type Report struct {
	Results []Result
}

// Submitted counts the transactions that landed.
func (r Report) Submitted() int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome.Submitted() {
			n++
		}
	}
	return n
}

// CloseBatch closes the selected accounts one after another in selection
// order. Keys missing from records are skipped. The first error stops the
// batch; accounts already closed stay closed.
func (c *Closer) CloseBatch(ctx context.Context, records []accounts.Record, selected []solana.PublicKey, w Wallet) (Report, error) {
	var report Report
	for _, pk := range selected {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		rec, ok := accounts.Find(records, pk)
		if !ok {
			c.log.Debug("Selected account not in list, skipping", "account", pk)
			continue
		}
		res, err := c.Close(ctx, rec.Pubkey, rec.Owner, w)
		report.Results = append(report.Results, res)
		if err != nil {
			c.log.Error("Failed to close account, stopping batch", "account", rec.Pubkey, "error", err, "attempted", len(report.Results), "selected", len(selected))
			return report, err
		}
	}
	c.log.Info("Batch finished", "attempted", len(report.Results), "submitted", report.Submitted())
	return report, nil
}
