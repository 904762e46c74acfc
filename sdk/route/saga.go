package route

import (
	"context"
	"github.com/jxo-me/talpa/core/errdefs"
	"github.com/jxo-me/talpa/core/logger"
	"github.com/pkg/errors"
	"time"
)

// Phase is the progress of one saga step.
type Phase string

const (
	PhaseStarted        Phase = "started"
	PhaseDone           Phase = "done"
	PhaseSkipped        Phase = "skipped"
	PhaseFailed         Phase = "failed"
	PhaseRollingBack    Phase = "rolling back"
	PhaseRolledBack     Phase = "rolled back"
	PhaseRollbackFailed Phase = "rollback failed"
)

// StepEvent is emitted for every phase change of a step.
type StepEvent struct {
	Hostname string
	Step     string
	Phase    Phase
	Err      error
}

type Observer func(ev StepEvent)

// errSkipped is returned by Step.Do when there was nothing to do. A skipped
// step is not compensated.
var errSkipped = errors.New("step skipped")

// Step is one forward action with an optional compensating action.
type Step struct {
	Name string
	Do   func(ctx context.Context) error
	// Undo reverts a completed Do. Nil means the step cannot be reverted.
	Undo func(ctx context.Context) error
	// Resource names what stays wrong when this step is done but the
	// operation as a whole is not. Empty for read-only steps.
	Resource    string
	Remediation string
}

type saga struct {
	hostname string
	steps    []Step
	observe  Observer
	logger   logger.ILogger
	// compensation timeout
	timeout time.Duration
}

func (s *saga) emit(step string, phase Phase, err error) {
	if s.observe != nil {
		s.observe(StepEvent{Hostname: s.hostname, Step: step, Phase: phase, Err: err})
	}
}

// run executes the steps in order and unwinds the completed ones, last first,
// when a step fails.
func (s *saga) run(ctx context.Context) error {
	done := make([]Step, 0, len(s.steps))
	for _, st := range s.steps {
		log := s.logger.WithFields(map[string]any{"hostname": s.hostname, "step": st.Name})
		s.emit(st.Name, PhaseStarted, nil)
		err := ctx.Err()
		if err == nil {
			err = st.Do(ctx)
		}
		switch {
		case errors.Is(err, errSkipped):
			log.Debug("nothing to do")
			s.emit(st.Name, PhaseSkipped, nil)
			continue
		case err != nil:
			log.Debugf("failed: %v", err)
			s.emit(st.Name, PhaseFailed, err)
			return s.unwind(ctx, st.Name, err, done)
		}
		log.Debug("done")
		s.emit(st.Name, PhaseDone, nil)
		done = append(done, st)
	}
	return nil
}

func (s *saga) unwind(ctx context.Context, failed string, cause error, done []Step) error {
	// The caller may already be cancelled; the rollback still has to run.
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	rolledBack := false
	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.Resource == "" {
			continue
		}
		if st.Undo == nil {
			s.logger.Warnf("%s: %s cannot be reverted after %s failed", s.hostname, st.Name, failed)
			return &errdefs.PartialFailureError{
				Hostname:    s.hostname,
				Step:        failed,
				Err:         cause,
				Resource:    st.Resource,
				Remediation: st.Remediation,
			}
		}
		log := s.logger.WithFields(map[string]any{"hostname": s.hostname, "step": st.Name})
		log.Warnf("rolling back after %s failed", failed)
		s.emit(st.Name, PhaseRollingBack, nil)
		if err := st.Undo(cctx); err != nil {
			log.Errorf("rollback failed: %v", err)
			s.emit(st.Name, PhaseRollbackFailed, err)
			return &errdefs.PartialFailureError{
				Hostname:     s.hostname,
				Step:         failed,
				Err:          cause,
				RollbackStep: st.Name,
				RollbackErr:  err,
				Resource:     st.Resource,
				Remediation:  st.Remediation,
			}
		}
		s.emit(st.Name, PhaseRolledBack, nil)
		rolledBack = true
	}
	return &errdefs.StepError{Step: failed, Err: cause, RolledBack: rolledBack}
}
