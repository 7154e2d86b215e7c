package jsonrpc

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

var retryableHTTPStatus = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

// Node side conditions that clear up on their own.
var retryableRPCCodes = map[int]struct{}{
	-32005: {}, // node is behind
	-32004: {}, // block not available
	-32014: {}, // block status not yet available
}

var retryableSyscallErrs = []error{
	io.EOF,
	io.ErrUnexpectedEOF,
	syscall.ECONNRESET,
	syscall.EPIPE,
	syscall.ECONNREFUSED,
	syscall.ETIMEDOUT,
}

var retryableMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"use of closed network connection",
}

func isRetryableJSONRPC(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, target := range retryableSyscallErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}

	if code, ok := httpStatus(err); ok {
		_, retry := retryableHTTPStatus[code]
		return retry
	}
	if code, ok := rpcCode(err); ok {
		_, retry := retryableRPCCodes[code]
		return retry
	}
	return false
}

func httpStatus(err error) (int, bool) {
	var httpErr *jsonrpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, true
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode(), true
	}
	return 0, false
}

func rpcCode(err error) (int, bool) {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	var c interface{ Code() int }
	if errors.As(err, &c) {
		return c.Code(), true
	}
	return 0, false
}
