package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/malbeclabs/account-manager/accountmanager/internal/accounts"
	"github.com/malbeclabs/account-manager/accountmanager/internal/closer"
	"github.com/malbeclabs/account-manager/accountmanager/internal/metrics"
	"github.com/malbeclabs/account-manager/accountmanager/internal/notify"
	"github.com/malbeclabs/account-manager/accountmanager/internal/session"
	"github.com/malbeclabs/account-manager/accountmanager/internal/wallet"
	"github.com/malbeclabs/account-manager/pkg/solana/jsonrpc"
	"github.com/malbeclabs/account-manager/pkg/solana/rpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Runtime is what a command needs once flags are resolved.
type Runtime struct {
	Log     *slog.Logger
	Session *session.Session
	Wallet  closer.Wallet
	Env     string
	RPCURL  string
}

type RuntimeBuilder func(ctx context.Context, log *slog.Logger, opts *Options, n notify.Notifier) (*Runtime, error)

// BuildRuntime wires the RPC client, wallet, aggregator, closer and session
// from the resolved settings.
func BuildRuntime(ctx context.Context, log *slog.Logger, opts *Options, n notify.Notifier) (*Runtime, error) {
	settings, err := resolveSettings(opts)
	if err != nil {
		return nil, err
	}

	if settings.MetricsAddr != "" {
		startMetricsServer(ctx, log, settings.MetricsAddr)
	}

	client := rpc.New(settings.RPCURL, &rpc.Options{
		Headers:        settings.RPCHeaders,
		Retry:          &jsonrpc.RetryOptions{MaxAttempts: settings.RPCMaxAttempts, Logger: log},
		RequestTimeout: settings.RPCTimeout,
	})

	keyring, err := wallet.Load(settings.Keypair, settings.ExtraKeypairs...)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	aggregator, err := accounts.NewAggregator(accounts.Config{
		Logger:     log,
		RPC:        client,
		Commitment: settings.Commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	c, err := closer.New(closer.Config{
		Logger:         log,
		RPC:            client,
		Notifier:       n,
		Commitment:     settings.Commitment,
		ConfirmTimeout: settings.ConfirmTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create closer: %w", err)
	}

	sess, err := session.New(session.Config{
		Logger:   log,
		Fetcher:  aggregator,
		Closer:   c,
		Notifier: n,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Debug("Runtime ready",
		"env", settings.Env,
		"rpcURL", settings.RPCURL,
		"wallet", keyring.PublicKey(),
		"signers", len(keyring.Signers()),
		"commitment", settings.Commitment,
	)

	return &Runtime{
		Log:     log,
		Session: sess,
		Wallet:  keyring,
		Env:     settings.Env,
		RPCURL:  settings.RPCURL,
	}, nil
}

func startMetricsServer(ctx context.Context, log *slog.Logger, addr string) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("Failed to start prometheus metrics server listener", "error", err)
		return
	}
	log.Info("Prometheus metrics server listening", "address", listener.Addr().String())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start prometheus metrics server", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	metrics.BuildInfo.WithLabelValues(buildVersion, buildCommit, buildDate).Set(1)
}
