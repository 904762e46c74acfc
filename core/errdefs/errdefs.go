// Package errdefs holds the error taxonomy shared by the API client, the
// ingress rule list and the route synchronizer. Callers classify errors with
// errors.Is against the sentinels below.
package errdefs

import (
	"fmt"
	"github.com/pkg/errors"
	"strings"
)

var (
	ErrAuthRejected          = errors.New("authentication rejected")
	ErrAPIUnavailable        = errors.New("api unavailable")
	ErrAPIRequest            = errors.New("api request rejected")
	ErrRouteNotFound         = errors.New("route not found")
	ErrMalformedRemoteConfig = errors.New("malformed remote config")
	ErrPartialFailure        = errors.New("partial failure")
	ErrRecordNotFound        = errors.New("dns record not found")
	ErrDNSConflict           = errors.New("dns record conflict")
	ErrCredentialNotFound    = errors.New("credential not found")
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrReadOnlyStore         = errors.New("credential store is read-only")
)

// StepError names the synchronizer step that failed.
type StepError struct {
	Step string
	Err  error
	// RolledBack is set when earlier writes of the same operation were reverted.
	RolledBack bool
}

func (e *StepError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("%s: %v (earlier changes rolled back)", e.Step, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// PartialFailureError reports an operation that left the tunnel configuration
// and the DNS record out of sync. It is the only error that needs an operator.
type PartialFailureError struct {
	Hostname string
	// Step is the step whose failure started the unwind.
	Step string
	Err  error
	// RollbackStep and RollbackErr are set when a compensating action failed.
	RollbackStep string
	RollbackErr  error
	// Resource is the remote resource that still needs correcting.
	Resource    string
	Remediation string
}

func (e *PartialFailureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "partial failure for %s: %s failed: %v", e.Hostname, e.Step, e.Err)
	if e.RollbackErr != nil {
		fmt.Fprintf(&b, "; rollback of %s failed: %v", e.RollbackStep, e.RollbackErr)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, "; %s needs manual correction", e.Resource)
	}
	return b.String()
}

func (e *PartialFailureError) Unwrap() []error {
	errs := []error{ErrPartialFailure, e.Err}
	if e.RollbackErr != nil {
		errs = append(errs, e.RollbackErr)
	}
	return errs
}
