package rpc

import (
	"net"
	"net/http"
	"time"

	solrpc "github.com/gagliardetto/solana-go/rpc"
	soljsonrpc "github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/klauspost/compress/gzhttp"
	"github.com/malbeclabs/account-manager/pkg/solana/jsonrpc"
)

const (
	// Calls are issued one at a time by an interactive operator, so a short
	// request deadline surfaces a stuck node quickly.
	defaultRequestTimeout  = 30 * time.Second
	defaultDialTimeout     = 10 * time.Second
	defaultIdleTimeout     = 90 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultMaxConnsPerHost = 4
)

// Options configures the client returned by New.
type Options struct {
	// Headers are added to every request, e.g. provider API keys.
	Headers map[string]string
	// Retry applies to read-only methods; nil attempts every call once.
	Retry *jsonrpc.RetryOptions
	// RequestTimeout bounds a single HTTP round trip including the body.
	// Zero uses defaultRequestTimeout.
	RequestTimeout time.Duration
}

// New creates a Solana JSON RPC client for the given endpoint.
func New(rpcEndpoint string, opt *Options) *solrpc.Client {
	if opt == nil {
		opt = &Options{}
	}
	opts := &soljsonrpc.RPCClientOpts{
		HTTPClient:    newHTTP(opt.RequestTimeout),
		CustomHeaders: opt.Headers,
	}
	soljsonrpcClient := soljsonrpc.NewClientWithOpts(rpcEndpoint, opts)
	jsonrpcClient := jsonrpc.WithRetry(soljsonrpcClient, opt.Retry)
	return solrpc.NewWithCustomRPCClient(jsonrpcClient)
}

// newHTTP returns a gzip-aware HTTP client whose dial and TLS deadlines never
// exceed the request timeout.
func newHTTP(requestTimeout time.Duration) *http.Client {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &http.Client{
		Timeout:   requestTimeout,
		Transport: gzhttp.Transport(newHTTPTransport(requestTimeout)),
	}
}

func newHTTPTransport(requestTimeout time.Duration) *http.Transport {
	dial := min(defaultDialTimeout, requestTimeout)
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   dial,
			KeepAlive: defaultKeepAlive,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxConnsPerHost:       defaultMaxConnsPerHost,
		MaxIdleConnsPerHost:   defaultMaxConnsPerHost,
		IdleConnTimeout:       defaultIdleTimeout,
		TLSHandshakeTimeout:   dial,
		ResponseHeaderTimeout: requestTimeout,
	}
}
