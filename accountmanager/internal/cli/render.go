package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
	"github.com/malbeclabs/account-manager/accountmanager/internal/closer"
	"github.com/malbeclabs/account-manager/accountmanager/internal/session"
	"github.com/olekukonko/tablewriter"
)

const (
	msgNoAccounts    = "No accounts found for this wallet."
	msgFetchFailed   = "Could not load accounts for this wallet; the RPC query failed. Run with --verbose for details."
	msgNotConnected  = "Please connect your wallet to continue."
	msgNothingToShow = "No accounts were attempted."
	msgInterrupted   = "Interrupted, leaving the dashboard."
)

func formatBalance(r accounts.Record) string {
	return strconv.FormatFloat(r.Balance(), 'f', -1, 64)
}

func formatSOL(lamports uint64) string {
	return strconv.FormatFloat(float64(lamports)/float64(solana.LAMPORTS_PER_SOL), 'f', -1, 64)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

// renderAccounts prints the account list. selected marks rows for the
// dashboard; pass nil to omit the column.
func renderAccounts(w io.Writer, state session.ListState, records []accounts.Record, selected func(solana.PublicKey) bool) {
	switch {
	case state == session.ListNotLoaded:
		fmt.Fprintln(w, msgNotConnected)
		return
	case state == session.ListUnknown:
		fmt.Fprintln(w, msgFetchFailed)
		return
	case len(records) == 0:
		fmt.Fprintln(w, msgNoAccounts)
		return
	}

	header := []string{"#", "Account", "Type", "Owner Program", "Balance", "SOL"}
	if selected != nil {
		header = append([]string{" "}, header...)
	}
	table := newTable(w, header)
	for i, r := range records {
		row := []string{
			strconv.Itoa(i + 1),
			r.Pubkey.String(),
			r.Kind.Label(),
			r.Owner.String(),
			formatBalance(r),
			formatSOL(r.Lamports),
		}
		if selected != nil {
			mark := "[ ]"
			if selected(r.Pubkey) {
				mark = "[x]"
			}
			row = append([]string{mark}, row...)
		}
		table.Append(row)
	}
	table.Render()
}

func renderReport(w io.Writer, report closer.Report) {
	if len(report.Results) == 0 {
		fmt.Fprintln(w, msgNothingToShow)
		return
	}
	table := newTable(w, []string{"Account", "Type", "Outcome", "Reclaimed SOL", "Signature"})
	for _, res := range report.Results {
		sig := ""
		if !res.Signature.IsZero() {
			sig = res.Signature.String()
		}
		reclaimed := ""
		if res.Outcome.Submitted() {
			reclaimed = formatSOL(res.Lamports)
		}
		table.Append([]string{
			res.Account.String(),
			res.Kind.Label(),
			res.Outcome.String(),
			reclaimed,
			sig,
		})
	}
	table.Render()
}
