package cliutil

import (
	"fmt"
	"github.com/jxo-me/talpa/config/parsing"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"strings"
)

func Action(actionFunc cli.ActionFunc) cli.ActionFunc {
	return WithErrorHandler(actionFunc)
}

// WithErrorHandler turns the error of actionFunc into a cli.ExitCoder whose
// code follows the error taxonomy.
func WithErrorHandler(actionFunc cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		err := actionFunc(c)
		if err == nil {
			return nil
		}
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			return err
		}
		return cli.Exit(Describe(err), ExitCode(err))
	}
}

// UsageError reports bad command line input.
func UsageError(format string, args ...any) error {
	return errors.Wrapf(errdefs.ErrInvalidArgument, format, args...)
}

var exitCodes = []struct {
	err  error
	code int
}{
	// checked first: a partial failure wraps the error that started it
	{errdefs.ErrPartialFailure, consts.ExitPartialFailure},
	{errdefs.ErrAuthRejected, consts.ExitAuthRejected},
	{errdefs.ErrAPIUnavailable, consts.ExitAPIUnavailable},
	{errdefs.ErrAPIRequest, consts.ExitAPIUnavailable},
	{errdefs.ErrRouteNotFound, consts.ExitRouteNotFound},
	{errdefs.ErrMalformedRemoteConfig, consts.ExitMalformedConfig},
	{errdefs.ErrDNSConflict, consts.ExitDNSConflict},
	{errdefs.ErrCredentialNotFound, consts.ExitCredentialMissing},
	{errdefs.ErrInvalidArgument, consts.ExitInvalidArgument},
	{errdefs.ErrReadOnlyStore, consts.ExitInvalidArgument},
	{parsing.ErrStoreNotSupported, consts.ExitInvalidArgument},
}

func ExitCode(err error) int {
	if err == nil {
		return consts.ExitOK
	}
	for _, ec := range exitCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return consts.ExitError
}

// Describe renders err for the operator. A partial failure is spelled out
// line by line since it has to be fixed by hand.
func Describe(err error) string {
	var partial *errdefs.PartialFailureError
	if !errors.As(err, &partial) {
		return "error: " + err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "error: %s is only partially applied\n", partial.Hostname)
	fmt.Fprintf(&b, "  failed step:      %s: %v\n", partial.Step, partial.Err)
	if partial.RollbackErr != nil {
		fmt.Fprintf(&b, "  rollback failed:  %s: %v\n", partial.RollbackStep, partial.RollbackErr)
	}
	if partial.Resource != "" {
		fmt.Fprintf(&b, "  needs correction: %s\n", partial.Resource)
	}
	if partial.Remediation != "" {
		fmt.Fprintf(&b, "  to fix:           %s\n", partial.Remediation)
	}
	return strings.TrimRight(b.String(), "\n")
}
