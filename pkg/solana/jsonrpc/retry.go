// Package jsonrpc wraps a Solana JSON-RPC client so idempotent reads can be
// retried on transient failures. Writes are always attempted once.
package jsonrpc

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

const (
	// One attempt unless the operator opts in.
	defaultMaxAttempts = 1
	defaultBaseBackoff = 500 * time.Millisecond
	defaultMaxBackoff  = 5 * time.Second
)

// readMethods only read ledger state and can be repeated safely.
var readMethods = map[string]struct{}{
	"getAccountInfo":          {},
	"getBalance":              {},
	"getLatestBlockhash":      {},
	"getMultipleAccounts":     {},
	"getProgramAccounts":      {},
	"getSignatureStatuses":    {},
	"getTokenAccountBalance":  {},
	"getTokenAccountsByOwner": {},
	"getVersion":              {},
}

// IsReadMethod reports whether method is safe to repeat.
func IsReadMethod(method string) bool {
	_, ok := readMethods[method]
	return ok
}

type RetryOptions struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// Logger receives a debug line per retried attempt when set.
	Logger *slog.Logger
}

func WithRetry(inner solanarpc.JSONRPCClient, opt *RetryOptions) solanarpc.JSONRPCClient {
	o := RetryOptions{}
	if opt != nil {
		o = *opt
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = defaultBaseBackoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	return &retryingClient{inner: inner, opt: o}
}

type retryingClient struct {
	inner solanarpc.JSONRPCClient
	opt   RetryOptions
}

func (c *retryingClient) CallForInto(ctx context.Context, out any, method string, params []any) error {
	_, err := call(ctx, c.opt, method, c.attemptsFor(method), func() (struct{}, error) {
		return struct{}{}, c.inner.CallForInto(ctx, out, method, params)
	})
	return err
}

func (c *retryingClient) CallWithCallback(ctx context.Context, method string, params []any, callback func(*http.Request, *http.Response) error) error {
	_, err := call(ctx, c.opt, method, c.attemptsFor(method), func() (struct{}, error) {
		return struct{}{}, c.inner.CallWithCallback(ctx, method, params, callback)
	})
	return err
}

// CallBatch is retried only when every request in the batch is a read.
func (c *retryingClient) CallBatch(ctx context.Context, requests jsonrpc.RPCRequests) (jsonrpc.RPCResponses, error) {
	attempts := c.opt.MaxAttempts
	for _, req := range requests {
		if !IsReadMethod(req.Method) {
			attempts = 1
			break
		}
	}
	return call(ctx, c.opt, "batch", attempts, func() (jsonrpc.RPCResponses, error) {
		return c.inner.CallBatch(ctx, requests)
	})
}

func (c *retryingClient) attemptsFor(method string) int {
	if !IsReadMethod(method) {
		return 1
	}
	return c.opt.MaxAttempts
}

func call[T any](ctx context.Context, opt RetryOptions, method string, attempts int, f func() (T, error)) (T, error) {
	if attempts <= 1 {
		return f()
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval: opt.BaseBackoff,
		Multiplier:      backoff.DefaultMultiplier,
		MaxInterval:     opt.MaxBackoff,
	}
	bo.Reset()

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		res, err := f()
		if err == nil {
			return res, nil
		}
		if !isRetryableJSONRPC(err) {
			return res, backoff.Permanent(err)
		}
		if opt.Logger != nil && attempt < attempts {
			opt.Logger.Debug("Retrying rpc call", "method", method, "attempt", attempt, "error", err)
		}
		return res, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(uint(attempts)),
	)
}
