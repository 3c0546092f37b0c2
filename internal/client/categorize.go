package client

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ErrorCategory is a stable label for fetch failure classification in logs and metrics.
type ErrorCategory string

// Error category constants used as the weatherApiErrorsTotal "category" label.
const (
	ErrorCategoryTimeout           ErrorCategory = "timeout"
	ErrorCategoryCanceled          ErrorCategory = "canceled"
	ErrorCategoryDNS               ErrorCategory = "dns"
	ErrorCategoryConnectionRefused ErrorCategory = "connection_refused"
	ErrorCategoryNetwork           ErrorCategory = "network"
	ErrorCategoryHTTPStatus        ErrorCategory = "http_status"
	ErrorCategoryReadBody          ErrorCategory = "read_body"
	ErrorCategoryRequest           ErrorCategory = "request"
	ErrorCategoryUnknown           ErrorCategory = "unknown"
)

// CategorizeError returns the category of a fetch error. A *FetchError keeps
// the category assigned at the failure site; other errors are classified as
// transport errors.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return categorizeTransport(err)
}

func categorizeTransport(err error) ErrorCategory {
	// Client.Timeout errors may also wrap context.Canceled, so timeouts are checked first.
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorCategoryTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrorCategoryCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrorCategoryDNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ErrorCategoryConnectionRefused
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return ErrorCategoryConnectionRefused
	case strings.Contains(errStr, "no such host"):
		return ErrorCategoryDNS
	case strings.Contains(errStr, "timeout"):
		return ErrorCategoryTimeout
	}

	var opErr *net.OpError
	var urlErr *url.Error
	if errors.As(err, &opErr) || errors.As(err, &urlErr) ||
		strings.Contains(errStr, "connection") || strings.Contains(errStr, "network") {
		return ErrorCategoryNetwork
	}
	return ErrorCategoryUnknown
}
