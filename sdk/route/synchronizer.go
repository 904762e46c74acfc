package route

import (
	"context"
	"fmt"
	"github.com/jxo-me/talpa/consts"
	"github.com/jxo-me/talpa/core/dns"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/jxo-me/talpa/core/hook"
	"github.com/jxo-me/talpa/core/logger"
	"github.com/jxo-me/talpa/core/tunnel"
	"github.com/jxo-me/talpa/sdk/ingress"
	"github.com/pkg/errors"
	"strings"
	"time"
)

// step names
const (
	StepFetchConfig    = "FetchConfig"
	StepValidateExists = "ValidateExists"
	StepComputeRules   = "ComputeRules"
	StepPushConfig     = "PushConfig"
	StepUpsertDNS      = "UpsertDns"
	StepDeleteDNS      = "DeleteDns"
)

// Result is the outcome of one Apply. It is returned even when Apply fails.
type Result struct {
	Operation Operation
	TunnelID  string
	Target    string
	Status    consts.StatusType
	// Before is the ingress list as fetched, After the one pushed.
	Before ingress.Rules
	After  ingress.Rules
}

type SynchronizerOptions struct {
	Observer            Observer
	Hooks               []hook.IHook
	Logger              logger.ILogger
	CompensationTimeout time.Duration
}

type SynchronizerOption func(opts *SynchronizerOptions)

func ObserverOption(o Observer) SynchronizerOption {
	return func(opts *SynchronizerOptions) {
		opts.Observer = o
	}
}

func HookOption(h hook.IHook) SynchronizerOption {
	return func(opts *SynchronizerOptions) {
		opts.Hooks = append(opts.Hooks, h)
	}
}

func LoggerOption(log logger.ILogger) SynchronizerOption {
	return func(opts *SynchronizerOptions) {
		opts.Logger = log
	}
}

// CompensationTimeoutOption bounds the rollback, which runs detached from the
// caller's context.
func CompensationTimeoutOption(d time.Duration) SynchronizerOption {
	return func(opts *SynchronizerOptions) {
		if d > 0 {
			opts.CompensationTimeout = d
		}
	}
}

// Synchronizer applies route operations to one tunnel and one zone, keeping
// the ingress list and the DNS record in step.
type Synchronizer struct {
	configs  tunnel.IConfigs
	records  dns.IRecords
	tunnelID string
	zoneID   string
	opts     SynchronizerOptions
}

func NewSynchronizer(configs tunnel.IConfigs, records dns.IRecords, tunnelID, zoneID string, opts ...SynchronizerOption) *Synchronizer {
	options := SynchronizerOptions{
		CompensationTimeout: consts.DefaultRequestTimeout * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = logger.Default()
	}
	return &Synchronizer{
		configs:  configs,
		records:  records,
		tunnelID: tunnelID,
		zoneID:   zoneID,
		opts:     options,
	}
}

// Apply runs op as a saga. Errors carry the failing step; a
// *errdefs.PartialFailureError means the remote state needs an operator.
func (s *Synchronizer) Apply(ctx context.Context, op Operation) (*Result, error) {
	res := &Result{Operation: op, TunnelID: s.tunnelID, Target: TunnelTarget(s.tunnelID)}
	var (
		steps   []Step
		changed *bool
	)
	switch op.Kind {
	case KindCreate:
		steps, changed = s.createSteps(op, res)
	case KindRemove:
		steps, changed = s.removeSteps(op, res)
	default:
		return nil, errors.Wrapf(errdefs.ErrInvalidArgument, "unknown operation %q", op.Kind)
	}

	sg := &saga{
		hostname: op.Hostname,
		steps:    steps,
		observe:  s.opts.Observer,
		logger:   s.opts.Logger,
		timeout:  s.opts.CompensationTimeout,
	}
	s.opts.Logger.Debugf("applying %s on tunnel %s", op, s.tunnelID)
	err := sg.run(ctx)
	res.Status = statusOf(err, *changed)
	s.notify(ctx, res, err)
	return res, err
}

func statusOf(err error, changed bool) consts.StatusType {
	if err == nil {
		if changed {
			return consts.StatusApplied
		}
		return consts.StatusUnchanged
	}
	var partial *errdefs.PartialFailureError
	if errors.As(err, &partial) {
		return consts.StatusPartialFailure
	}
	var stepErr *errdefs.StepError
	if errors.As(err, &stepErr) && stepErr.RolledBack {
		return consts.StatusRolledBack
	}
	return consts.StatusFailed
}

// createSteps pushes the rule first and adds DNS last, so a record never
// points at a hostname the tunnel does not route.
func (s *Synchronizer) createSteps(op Operation, res *Result) ([]Step, *bool) {
	var (
		cfg     *ingress.Config
		changed bool
	)
	resource := fmt.Sprintf("ingress rule for %s on tunnel %s", op.Hostname, s.tunnelID)
	return []Step{
		{
			Name: StepFetchConfig,
			Do: func(ctx context.Context) (err error) {
				cfg, err = s.configs.FetchConfig(ctx, s.tunnelID)
				if err == nil {
					res.Before = cfg.Ingress
				}
				return err
			},
		},
		{
			Name: StepComputeRules,
			Do: func(ctx context.Context) (err error) {
				res.After, changed, err = cfg.Ingress.InsertOrReplace(op.Hostname, op.Service)
				return err
			},
		},
		{
			Name: StepPushConfig,
			Do: func(ctx context.Context) error {
				if !changed {
					return errSkipped
				}
				return s.configs.ReplaceConfig(ctx, s.tunnelID, cfg.WithIngress(res.After))
			},
			Undo: func(ctx context.Context) error {
				return s.configs.ReplaceConfig(ctx, s.tunnelID, cfg)
			},
			Resource:    resource,
			Remediation: fmt.Sprintf("restore the ingress list of tunnel %s or run `talpa plug %s`", s.tunnelID, op.Hostname),
		},
		{
			Name: StepUpsertDNS,
			Do: func(ctx context.Context) error {
				dnsChanged, err := s.upsertRecord(ctx, op)
				if err != nil {
					return err
				}
				if !dnsChanged {
					return errSkipped
				}
				changed = true
				return nil
			},
		},
	}, &changed
}

func (s *Synchronizer) upsertRecord(ctx context.Context, op Operation) (bool, error) {
	target := TunnelTarget(s.tunnelID)
	rec, err := s.records.FindByName(ctx, s.zoneID, op.Hostname)
	switch {
	case errors.Is(err, errdefs.ErrRecordNotFound):
		if _, err = s.records.Create(ctx, s.zoneID, op.Hostname, target); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	case !isCNAME(rec):
		return false, errors.Wrapf(errdefs.ErrDNSConflict, "%s already has a %s record, remove it first", op.Hostname, rec.Type)
	case sameTarget(rec.Target, target):
		return false, nil
	case !op.Force:
		return false, errors.Wrapf(errdefs.ErrDNSConflict, "%s already points at %s (use --force to replace it)", op.Hostname, rec.Target)
	}
	// overwrite in place: a failed update leaves the old record untouched
	s.opts.Logger.Warnf("replacing CNAME %s -> %s", op.Hostname, rec.Target)
	if err = s.records.Update(ctx, s.zoneID, rec.ID, op.Hostname, target); err != nil {
		return false, err
	}
	return true, nil
}

// removeSteps deletes DNS first and the rule last. The DNS deletion is not
// reverted: recreating a record just deleted could resurrect stale state.
func (s *Synchronizer) removeSteps(op Operation, res *Result) ([]Step, *bool) {
	var (
		cfg     *ingress.Config
		changed bool
	)
	return []Step{
		{
			Name: StepFetchConfig,
			Do: func(ctx context.Context) (err error) {
				cfg, err = s.configs.FetchConfig(ctx, s.tunnelID)
				if err == nil {
					res.Before = cfg.Ingress
				}
				return err
			},
		},
		{
			Name: StepValidateExists,
			Do: func(ctx context.Context) error {
				if err := cfg.Validate(); err != nil {
					return err
				}
				if !cfg.Ingress.Contains(op.Hostname) {
					return errors.Wrapf(errdefs.ErrRouteNotFound, "%s is not routed by tunnel %s", op.Hostname, s.tunnelID)
				}
				return nil
			},
		},
		{
			Name: StepDeleteDNS,
			Do: func(ctx context.Context) error {
				rec, err := s.records.FindByName(ctx, s.zoneID, op.Hostname)
				switch {
				case errors.Is(err, errdefs.ErrRecordNotFound):
					s.opts.Logger.Infof("no CNAME for %s, treating it as already removed", op.Hostname)
					return errSkipped
				case err != nil:
					return err
				case !isCNAME(rec):
					s.opts.Logger.Infof("%s has a %s record, not a tunnel CNAME; leaving it", op.Hostname, rec.Type)
					return errSkipped
				case !sameTarget(rec.Target, TunnelTarget(s.tunnelID)) && !op.Force:
					return errors.Wrapf(errdefs.ErrDNSConflict, "%s points at %s, not this tunnel (use --force to delete it)", op.Hostname, rec.Target)
				}
				if err = s.records.Delete(ctx, s.zoneID, rec.ID); err != nil {
					return err
				}
				changed = true
				return nil
			},
			Resource:    fmt.Sprintf("ingress rule for %s on tunnel %s", op.Hostname, s.tunnelID),
			Remediation: fmt.Sprintf("the DNS record is already deleted; run `talpa plug %s` again or remove the rule from the tunnel configuration", op.Hostname),
		},
		{
			Name: StepComputeRules,
			Do: func(ctx context.Context) (err error) {
				res.After, err = cfg.Ingress.Remove(op.Hostname)
				return err
			},
		},
		{
			Name: StepPushConfig,
			Do: func(ctx context.Context) error {
				if err := s.configs.ReplaceConfig(ctx, s.tunnelID, cfg.WithIngress(res.After)); err != nil {
					return err
				}
				changed = true
				return nil
			},
		},
	}, &changed
}

func (s *Synchronizer) notify(ctx context.Context, res *Result, err error) {
	if len(s.opts.Hooks) == 0 {
		return
	}
	ev := &hook.Event{
		Operation: string(res.Operation.Kind),
		Hostname:  res.Operation.Hostname,
		Service:   res.Operation.Service,
		Target:    res.Target,
		TunnelID:  res.TunnelID,
		Status:    res.Status,
		Err:       err,
	}
	for _, h := range s.opts.Hooks {
		if hookErr := h.ExecHook(ctx, ev); hookErr != nil {
			s.opts.Logger.Warnf("%s hook failed: %v", h.String(), hookErr)
		}
	}
}

func sameTarget(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "."), strings.TrimSuffix(b, "."))
}

func isCNAME(rec *dns.Record) bool {
	return strings.EqualFold(rec.Type, consts.RecordTypeCNAME)
}
