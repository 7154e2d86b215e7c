package closer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
	"github.com/malbeclabs/account-manager/accountmanager/internal/metrics"
	"github.com/malbeclabs/account-manager/accountmanager/internal/notify"
)

var ErrAccountNotFound = errors.New("account not found")

// Closer reclaims the funds held by accounts a wallet owns.
type Closer struct {
	log *slog.Logger
	cfg Config
}

func New(cfg Config) (*Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Closer{
		log: cfg.Logger,
		cfg: cfg,
	}, nil
}

// Close handles a single account according to the program that owns it.
// Refusals are reported through the notifier and return a nil error; only a
// failed lookup or transaction returns a *ClosureError.
func (c *Closer) Close(ctx context.Context, account, owner solana.PublicKey, w Wallet) (Result, error) {
	c.log.Info("Attempting to close account", "account", account, "owner", owner)

	var (
		res Result
		err error
	)
	switch kind := accounts.KindOf(owner); kind {
	case accounts.KindToken:
		res, err = c.closeTokenAccount(ctx, account, w)
	case accounts.KindNative:
		res, err = c.closeNativeAccount(ctx, account, w)
	default:
		c.log.Info("Unsupported account type for closing", "account", account, "owner", owner)
		c.cfg.Notifier.Notify(notify.LevelWarn, fmt.Sprintf("Cannot close account with program ID: %s", owner))
		res = Result{Account: account, Kind: kind, Outcome: OutcomeSkippedUnsupportedOwner}
	}

	if err != nil {
		res.Outcome = OutcomeFailed
		var ce *ClosureError
		if errors.As(err, &ce) {
			metrics.Errors.WithLabelValues(ce.Stage.ErrorType()).Inc()
		}
	}
	metrics.Closures.WithLabelValues(res.Outcome.String()).Inc()
	return res, err
}

func (c *Closer) closeTokenAccount(ctx context.Context, account solana.PublicKey, w Wallet) (Result, error) {
	res := Result{Account: account, Kind: accounts.KindToken}

	info, err := c.cfg.RPC.GetAccountInfoWithOpts(ctx, account, &solanarpc.GetAccountInfoOpts{
		Commitment: c.cfg.Commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		return res, &ClosureError{Account: account, Stage: StageAccountInfo, Err: err}
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return res, &ClosureError{Account: account, Stage: StageAccountInfo, Err: ErrAccountNotFound}
	}
	acc, err := accounts.DecodeTokenAccount(info.Value.Data.GetBinary())
	if err != nil {
		return res, &ClosureError{Account: account, Stage: StageDecode, Err: err}
	}
	res.TokenAmount = acc.Amount

	if acc.Amount > 0 {
		c.log.Info("Token account has a balance, not closing", "account", account, "amount", acc.Amount, "mint", acc.Mint)
		c.cfg.Notifier.Notify(notify.LevelWarn, fmt.Sprintf(
			"The SPL token account %s has a balance of %d tokens. Please transfer the tokens manually before attempting to close the account.",
			account, acc.Amount,
		))
		res.Outcome = OutcomeSkippedNonZeroBalance
		return res, nil
	}

	// Rent is refunded to the wallet, which is also the close authority.
	ix := token.NewCloseAccountInstruction(account, w.PublicKey(), w.PublicKey(), nil).Build()
	sig, err := c.submit(ctx, account, ix, w)
	if err != nil {
		return res, err
	}
	c.log.Info("SPL token account closed", "account", account, "signature", sig)

	res.Outcome = OutcomeClosed
	res.Signature = sig
	res.Lamports = info.Value.Lamports
	return res, nil
}

func (c *Closer) closeNativeAccount(ctx context.Context, account solana.PublicKey, w Wallet) (Result, error) {
	res := Result{Account: account, Kind: accounts.KindNative}

	balance, err := c.cfg.RPC.GetBalance(ctx, account, c.cfg.Commitment)
	if err != nil {
		return res, &ClosureError{Account: account, Stage: StageBalance, Err: err}
	}
	lamports := balance.Value

	if lamports == 0 {
		c.log.Info("System account has no SOL, account is effectively empty", "account", account)
		res.Outcome = OutcomeAlreadyEmpty
		return res, nil
	}

	ix := system.NewTransferInstruction(lamports, account, w.PublicKey()).Build()
	sig, err := c.submit(ctx, account, ix, w)
	if err != nil {
		return res, err
	}
	c.log.Info("System account closed, SOL transferred", "account", account, "lamports", lamports, "signature", sig)

	res.Outcome = OutcomeClosed
	res.Signature = sig
	res.Lamports = lamports
	return res, nil
}

// submit builds a single instruction transaction paid by the wallet, has the
// wallet sign and send it, and waits for processed confirmation.
func (c *Closer) submit(ctx context.Context, account solana.PublicKey, ix solana.Instruction, w Wallet) (solana.Signature, error) {
	blockhash, err := c.cfg.RPC.GetLatestBlockhash(ctx, c.cfg.Commitment)
	if err != nil {
		return solana.Signature{}, &ClosureError{Account: account, Stage: StageBlockhash, Err: err}
	}
	if blockhash == nil || blockhash.Value == nil {
		return solana.Signature{}, &ClosureError{Account: account, Stage: StageBlockhash, Err: errors.New("empty blockhash result")}
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash.Value.Blockhash,
		solana.TransactionPayer(w.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, &ClosureError{Account: account, Stage: StageBuild, Err: err}
	}

	if err := w.SignTransaction(ctx, tx); err != nil {
		return solana.Signature{}, &ClosureError{Account: account, Stage: StageSign, Err: err}
	}

	sig, err := w.SendTransaction(ctx, tx, c.cfg.RPC)
	if err != nil {
		return solana.Signature{}, &ClosureError{Account: account, Stage: StageSend, Err: err}
	}
	c.log.Debug("Transaction sent", "account", account, "signature", sig)

	if err := c.waitForProcessed(ctx, sig); err != nil {
		return sig, &ClosureError{Account: account, Stage: StageConfirm, Err: err}
	}
	return sig, nil
}
