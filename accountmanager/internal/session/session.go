// Package session holds the state of a connected wallet: its account list,
// the operator's selection and the batch close flow.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
	"github.com/malbeclabs/account-manager/accountmanager/internal/closer"
	"github.com/malbeclabs/account-manager/accountmanager/internal/metrics"
	"github.com/malbeclabs/account-manager/accountmanager/internal/notify"
)

var (
	ErrLoggerRequired   = errors.New("logger is required")
	ErrFetcherRequired  = errors.New("fetcher is required")
	ErrCloserRequired   = errors.New("closer is required")
	ErrNotifierRequired = errors.New("notifier is required")

	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrBatchInProgress    = errors.New("batch close already in progress")
)

const (
	NoticeConnectWallet = "Please connect your wallet first!"
	NoticeBatchSuccess  = "Selected accounts closed successfully!"
	NoticeBatchFailure  = "Failed to close accounts."
)

type Fetcher interface {
	FetchAll(ctx context.Context, owner solana.PublicKey) ([]accounts.Record, error)
}

type BatchCloser interface {
	CloseBatch(ctx context.Context, records []accounts.Record, selected []solana.PublicKey, w closer.Wallet) (closer.Report, error)
}

// ListState tells an empty listing apart from a listing that failed.
type ListState int

const (
	ListNotLoaded ListState = iota
	ListLoaded
	ListUnknown
)

func (s ListState) String() string {
	switch s {
	case ListLoaded:
		return "loaded"
	case ListUnknown:
		return "unknown"
	default:
		return "not_loaded"
	}
}

type Config struct {
	Logger   *slog.Logger
	Fetcher  Fetcher
	Closer   BatchCloser
	Notifier notify.Notifier
	Clock    clockwork.Clock
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return ErrLoggerRequired
	}
	if c.Fetcher == nil {
		return ErrFetcherRequired
	}
	if c.Closer == nil {
		return ErrCloserRequired
	}
	if c.Notifier == nil {
		return ErrNotifierRequired
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	return nil
}

type Session struct {
	log *slog.Logger
	cfg Config

	mu          sync.Mutex
	wallet      closer.Wallet
	records     []accounts.Record
	selection   *Selection
	state       ListState
	refreshedAt time.Time
	busy        bool
}

func New(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Session{
		log:       cfg.Logger,
		cfg:       cfg,
		selection: NewSelection(),
	}, nil
}

// Connect attaches a wallet, clears any selection and loads its accounts.
func (s *Session) Connect(ctx context.Context, w closer.Wallet) error {
	if w == nil {
		return ErrWalletNotConnected
	}
	s.mu.Lock()
	s.wallet = w
	s.records = nil
	s.state = ListNotLoaded
	s.selection.Clear()
	s.mu.Unlock()

	s.log.Info("Wallet connected", "wallet", w.PublicKey())
	return s.Refresh(ctx)
}

func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallet != nil {
		s.log.Info("Wallet disconnected", "wallet", s.wallet.PublicKey())
	}
	s.wallet = nil
	s.records = nil
	s.state = ListNotLoaded
	s.selection.Clear()
}

func (s *Session) Wallet() closer.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallet
}

// Refresh reloads the account list. On failure the list is emptied, its
// state becomes ListUnknown and the error is returned. Selected keys that are
// no longer listed are dropped.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	w := s.wallet
	s.mu.Unlock()
	if w == nil {
		return ErrWalletNotConnected
	}

	records, err := s.cfg.Fetcher.FetchAll(ctx, w.PublicKey())
	now := s.cfg.Clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshedAt = now
	if err != nil {
		s.log.Error("Error fetching all accounts", "wallet", w.PublicKey(), "error", err)
		metrics.Errors.WithLabelValues(metrics.ErrorTypeFetchAccounts).Inc()
		metrics.Refreshes.WithLabelValues("error").Inc()
		s.records = nil
		s.state = ListUnknown
		return err
	}
	metrics.Refreshes.WithLabelValues("ok").Inc()

	s.records = records
	s.state = ListLoaded
	if dropped := s.selection.Retain(func(pk solana.PublicKey) bool {
		_, ok := accounts.Find(records, pk)
		return ok
	}); dropped > 0 {
		s.log.Debug("Dropped stale selections", "count", dropped)
	}

	counts := accounts.CountByKind(records)
	for _, kind := range []accounts.Kind{accounts.KindToken, accounts.KindNative, accounts.KindProgram} {
		metrics.AccountsListed.WithLabelValues(kind.String()).Set(float64(counts[kind]))
	}
	s.log.Debug("Refreshed accounts", "wallet", w.PublicKey(), "count", len(records))
	return nil
}

// Toggle flips the selection of a listed account and reports whether it is
// selected afterwards. Keys that are not listed are ignored.
func (s *Session) Toggle(pk solana.PublicKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := accounts.Find(s.records, pk); !ok {
		s.log.Debug("Ignoring toggle of unlisted account", "account", pk)
		return false
	}
	return s.selection.Toggle(pk)
}

// ToggleString is Toggle for a base58 key typed by the operator.
func (s *Session) ToggleString(key string) (bool, error) {
	pk, err := ParsePubkey(key)
	if err != nil {
		return false, err
	}
	return s.Toggle(pk), nil
}

func (s *Session) IsSelected(pk solana.PublicKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Contains(pk)
}

func (s *Session) Selected() []solana.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.Keys()
}

func (s *Session) Accounts() []accounts.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]accounts.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Session) State() ListState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) RefreshedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshedAt
}

// Busy reports whether a batch close is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// CloseSelected closes every selected account in selection order. Whatever
// the outcome the selection is cleared and the list refreshed afterwards.
func (s *Session) CloseSelected(ctx context.Context) (closer.Report, error) {
	s.mu.Lock()
	if s.wallet == nil {
		s.mu.Unlock()
		s.cfg.Notifier.Notify(notify.LevelError, NoticeConnectWallet)
		return closer.Report{}, ErrWalletNotConnected
	}
	if s.busy {
		s.mu.Unlock()
		return closer.Report{}, ErrBatchInProgress
	}
	s.busy = true
	w := s.wallet
	records := make([]accounts.Record, len(s.records))
	copy(records, s.records)
	selected := s.selection.Keys()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	s.log.Info("Closing selected accounts", "wallet", w.PublicKey(), "selected", len(selected))
	report, batchErr := s.cfg.Closer.CloseBatch(ctx, records, selected, w)
	if batchErr != nil {
		s.log.Error("Error closing accounts", "error", batchErr, "attempted", len(report.Results))
		s.cfg.Notifier.Notify(notify.LevelError, NoticeBatchFailure)
	} else {
		s.cfg.Notifier.Notify(notify.LevelInfo, NoticeBatchSuccess)
	}

	s.mu.Lock()
	s.selection.Clear()
	s.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		s.log.Warn("Failed to refresh accounts after closing", "error", err)
	}
	return report, batchErr
}
