package price

import (
	"encoding/json"
	"fmt"
	"github.com/pkg/errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

var (
	// ErrNotFound means the query did not resolve to any coin
	ErrNotFound = errors.New("coin not found")
	// ErrRateLimited means upstream kept answering 429
	ErrRateLimited = errors.New("upstream rate limit exceeded")
	// ErrTransientNetwork covers resets, DNS failures and timeouts
	ErrTransientNetwork = errors.New("upstream network error")
	// ErrInvalidResponse means upstream answered with an unexpected shape
	ErrInvalidResponse = errors.New("invalid upstream response")
)

// StatusError is returned by the upstream transport for HTTP status >= 400
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d %s for %s", e.Code, http.StatusText(e.Code), e.URL)
}

// errorKind is the retry class of an upstream failure
type errorKind int

const (
	kindOther errorKind = iota
	kindNotFound
	kindRateLimited
	kindNetwork
	kindReset
	kindInvalid
)

func (k errorKind) String() string {
	switch k {
	case kindNotFound:
		return "not_found"
	case kindRateLimited:
		return "rate_limited"
	case kindNetwork:
		return "network"
	case kindReset:
		return "connection_reset"
	case kindInvalid:
		return "invalid_response"
	}
	return "other"
}

func (k errorKind) sentinel() error {
	switch k {
	case kindNotFound:
		return ErrNotFound
	case kindRateLimited:
		return ErrRateLimited
	case kindNetwork, kindReset:
		return ErrTransientNetwork
	case kindInvalid:
		return ErrInvalidResponse
	}
	return nil
}

func classify(err error) errorKind {
	switch {
	case err == nil:
		return kindOther
	case errors.Is(err, ErrNotFound):
		return kindNotFound
	case errors.Is(err, ErrRateLimited):
		return kindRateLimited
	case errors.Is(err, ErrInvalidResponse):
		return kindInvalid
	}

	var status *StatusError
	if errors.As(err, &status) {
		switch {
		case status.Code == http.StatusTooManyRequests:
			return kindRateLimited
		case status.Code == http.StatusNotFound:
			return kindNotFound
		case status.Code >= 500:
			return kindNetwork
		}
		return kindOther
	}

	msg := strings.ToLower(err.Error())
	if errors.Is(err, syscall.ECONNRESET) || strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "other side closed") {
		return kindReset
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return kindInvalid
	}

	var dnsErr *net.DNSError
	var netErr net.Error
	if errors.As(err, &dnsErr) || errors.As(err, &netErr) || errors.Is(err, ErrTransientNetwork) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) ||
		strings.Contains(msg, "socket hang up") {
		return kindNetwork
	}

	return kindOther
}

// Classify maps a raw upstream error onto ErrNotFound, ErrRateLimited,
// ErrTransientNetwork or ErrInvalidResponse. Unknown errors map to nil.
func Classify(err error) error {
	return classify(err).sentinel()
}
