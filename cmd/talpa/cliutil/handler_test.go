package cliutil

import (
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, consts.ExitOK},
		{"plain", errors.New("boom"), consts.ExitError},
		{"auth", errors.Wrap(errdefs.ErrAuthRejected, "403"), consts.ExitAuthRejected},
		{"unavailable", &errdefs.StepError{Step: "FetchConfig", Err: errdefs.ErrAPIUnavailable}, consts.ExitAPIUnavailable},
		{"request", errors.Wrap(errdefs.ErrAPIRequest, "400"), consts.ExitAPIUnavailable},
		{"not found", errors.Wrap(errdefs.ErrRouteNotFound, "x"), consts.ExitRouteNotFound},
		{"malformed", errdefs.ErrMalformedRemoteConfig, consts.ExitMalformedConfig},
		{"conflict", errdefs.ErrDNSConflict, consts.ExitDNSConflict},
		{"credentials", errdefs.ErrCredentialNotFound, consts.ExitCredentialMissing},
		{"usage", UsageError("bad %s", "input"), consts.ExitInvalidArgument},
		{"partial wins", &errdefs.PartialFailureError{Hostname: "a.example.com", Step: "PushConfig", Err: errdefs.ErrAPIUnavailable}, consts.ExitPartialFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestDescribePartialFailure(t *testing.T) {
	err := &errdefs.PartialFailureError{
		Hostname:     "app.example.com",
		Step:         "UpsertDns",
		Err:          errors.New("dns down"),
		RollbackStep: "PushConfig",
		RollbackErr:  errors.New("tunnel down"),
		Resource:     "ingress rule for app.example.com on tunnel t1",
		Remediation:  "run `talpa plug app.example.com`",
	}
	assert.Equal(t, "error: app.example.com is only partially applied\n"+
		"  failed step:      UpsertDns: dns down\n"+
		"  rollback failed:  PushConfig: tunnel down\n"+
		"  needs correction: ingress rule for app.example.com on tunnel t1\n"+
		"  to fix:           run `talpa plug app.example.com`", Describe(err))

	assert.Equal(t, "error: boom", Describe(errors.New("boom")))
}

func TestWithErrorHandler(t *testing.T) {
	action := WithErrorHandler(func(*cli.Context) error {
		return errors.Wrap(errdefs.ErrRouteNotFound, "app.example.com")
	})
	err := action(nil)
	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, consts.ExitRouteNotFound, exitErr.ExitCode())

	passthrough := WithErrorHandler(func(*cli.Context) error { return cli.Exit("bye", 42) })
	require.ErrorAs(t, passthrough(nil), &exitErr)
	assert.Equal(t, 42, exitErr.ExitCode())

	assert.NoError(t, WithErrorHandler(func(*cli.Context) error { return nil })(nil))
}

func TestBuildInfo(t *testing.T) {
	bi := GetBuildInfo("", "1.2.3")
	assert.Equal(t, "", bi.GetBuildTypeMsg())
	assert.Contains(t, bi.String(), "talpa 1.2.3 (go")
	assert.Equal(t, " with homebrew", GetBuildInfo("homebrew", "1.2.3").GetBuildTypeMsg())
}
