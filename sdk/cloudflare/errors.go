package cloudflare

import (
	"context"
	"fmt"
	cf "github.com/cloudflare/cloudflare-go/v6"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"net/http"
	"strings"
)

// APIError is a failed call, classified as one of errdefs.ErrAuthRejected,
// errdefs.ErrAPIUnavailable or errdefs.ErrAPIRequest.
type APIError struct {
	Op         string
	StatusCode int
	Kind       error
	Messages   []string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cloudflare api: %s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if len(e.Messages) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Messages, "; "))
	}
	return b.String()
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return errdefs.ErrAuthRejected
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return errdefs.ErrAPIUnavailable
	default:
		return errdefs.ErrAPIRequest
	}
}

// classify turns an SDK error into an *APIError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *cf.Error
	if errors.As(err, &apiErr) {
		return &APIError{Op: op, StatusCode: apiErr.StatusCode, Kind: kindForStatus(apiErr.StatusCode), Messages: []string{apiErr.Error()}}
	}
	if errors.Is(err, context.Canceled) {
		return errors.Wrap(err, op)
	}
	return &APIError{Op: op, Kind: errdefs.ErrAPIUnavailable, Messages: []string{err.Error()}}
}
