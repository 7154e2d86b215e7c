package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/malbeclabs/account-manager/accountmanager/internal/notify"
	"github.com/malbeclabs/account-manager/accountmanager/internal/session"
	"github.com/spf13/cobra"
)

// connect builds the runtime and loads the wallet's accounts. A failed
// account query is not an error here; the list state records it.
func (a *App) connect(cmd *cobra.Command) (context.Context, context.CancelFunc, *Runtime, error) {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)

	rt, err := a.Build(ctx, a.log, &a.opts, notify.NewWriter(a.Out, a.log))
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	if err := rt.Session.Connect(ctx, rt.Wallet); err != nil && rt.Session.State() != session.ListUnknown {
		cancel()
		return nil, nil, nil, err
	}
	fmt.Fprintf(a.Out, "Wallet: %s (%s)\n", rt.Wallet.PublicKey(), rt.Env)
	return ctx, cancel, rt, nil
}

func (a *App) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the accounts owned by the wallet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cancel, rt, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			renderAccounts(a.Out, rt.Session.State(), rt.Session.Accounts(), nil)
			if rt.Session.State() == session.ListUnknown {
				return errors.New("failed to fetch accounts")
			}
			return nil
		},
	}
}

func (a *App) newCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <pubkey>...",
		Short: "Close the given accounts and reclaim their funds to the wallet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if _, err := session.ParsePubkey(arg); err != nil {
					return err
				}
			}

			ctx, cancel, rt, err := a.connect(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			for _, arg := range args {
				pk, _ := session.ParsePubkey(arg)
				if rt.Session.IsSelected(pk) {
					continue
				}
				if !rt.Session.Toggle(pk) {
					fmt.Fprintf(a.Out, "Account %s is not listed for this wallet, skipping.\n", arg)
				}
			}

			report, err := rt.Session.CloseSelected(ctx)
			renderReport(a.Out, report)
			return err
		},
	}
}
