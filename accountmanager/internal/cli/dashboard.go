package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
	"github.com/malbeclabs/account-manager/accountmanager/internal/session"
	"github.com/spf13/cobra"
)

const dashboardHelp = `Commands:
  <n> [<n>...]   toggle selection of row n
  <pubkey>       toggle selection of an account by key
  c              close the selected accounts
  r              refresh the account list
  q              quit`

func (a *App) newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Interactively select and close accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, rt, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			return a.runDashboard(ctx, rt)
		},
	}
}

func (a *App) runDashboard(ctx context.Context, rt *Runtime) error {
	sess := rt.Session
	a.printDashboard(sess)
	fmt.Fprintln(a.Out, dashboardHelp)

	done := make(chan struct{})
	defer close(done)
	lines, readErr := readLines(a.In, done)

	for {
		if ctx.Err() != nil {
			fmt.Fprintln(a.Out, msgInterrupted)
			return nil
		}
		fmt.Fprint(a.Out, "> ")

		var raw string
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.Out)
			fmt.Fprintln(a.Out, msgInterrupted)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(a.Out)
				return <-readErr
			}
			raw = l
		}

		line := strings.TrimSpace(raw)
		switch line {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		case "h", "help", "?":
			fmt.Fprintln(a.Out, dashboardHelp)
		case "r", "refresh":
			if err := sess.Refresh(ctx); err != nil {
				rt.Log.Debug("Refresh failed", "error", err)
			}
			a.printDashboard(sess)
		case "c", "close":
			if len(sess.Selected()) == 0 {
				fmt.Fprintln(a.Out, "No accounts selected.")
				continue
			}
			report, err := sess.CloseSelected(ctx)
			renderReport(a.Out, report)
			if errors.Is(err, session.ErrBatchInProgress) {
				fmt.Fprintln(a.Out, "A close is already running.")
			}
			a.printDashboard(sess)
		default:
			a.toggle(sess, line)
			a.printDashboard(sess)
		}
	}
}

// readLines scans in on its own goroutine so the prompt can react to
// cancellation while a read is blocked. The error channel receives the scan
// result once lines is closed.
func readLines(in io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

// toggle handles row numbers and base58 keys typed at the prompt.
func (a *App) toggle(sess *session.Session, line string) {
	records := sess.Accounts()
	for _, field := range strings.Fields(line) {
		if n, err := strconv.Atoi(field); err == nil {
			if n < 1 || n > len(records) {
				fmt.Fprintf(a.Out, "No account in row %d.\n", n)
				continue
			}
			sess.Toggle(records[n-1].Pubkey)
			continue
		}
		pk, err := session.ParsePubkey(field)
		if err != nil {
			fmt.Fprintf(a.Out, "Unknown command %q, type h for help.\n", field)
			continue
		}
		if _, ok := accounts.Find(records, pk); !ok {
			fmt.Fprintf(a.Out, "Account %s is not listed for this wallet.\n", pk)
			continue
		}
		sess.Toggle(pk)
	}
}

func (a *App) printDashboard(sess *session.Session) {
	renderAccounts(a.Out, sess.State(), sess.Accounts(), sess.IsSelected)
	if n := len(sess.Selected()); n > 0 {
		fmt.Fprintf(a.Out, "%d selected.\n", n)
	}
}
