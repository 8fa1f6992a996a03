package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"polyscribe/internal/logging"
	"polyscribe/internal/services"
)

// orchestrator drives the pass state machine:
//
//	start -> neutral_done -> short_circuited  -> selected
//	                      -> second_pass_done -> selected
type orchestrator struct {
	neutral         pass
	hinted          pass
	speculative     bool
	defaultLanguage string
	logger          *slog.Logger
}

type run struct {
	state   State
	trail   []State
	neutral Candidate
	hinted  *Candidate
	calls   *atomic.Int32
	outcome Outcome
}

func (r *run) advance(next State) {
	r.state = next
	r.trail = append(r.trail, next)
}

func (r *run) failedPasses() []PassKind {
	failed := make([]PassKind, 0, 2)
	if r.state == StateStart {
		return failed
	}
	if !r.neutral.OK {
		failed = append(failed, PassNeutral)
	}
	if r.hinted != nil && !r.hinted.OK {
		failed = append(failed, PassHinted)
	}
	return failed
}

// speculation is a hinted pass started alongside the neutral pass.
type speculation struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Result
	ok     bool
}

func (o *orchestrator) speculate(ctx context.Context, audio *Audio) *speculation {
	ctx, cancel := context.WithCancel(ctx)
	s := &speculation{cancel: cancel, done: make(chan struct{}), result: EmptyResult()}
	go func() {
		defer close(s.done)
		defer func() {
			if rec := recover(); rec != nil {
				logging.ErrorWithContext(o.logger, "speculative pass panicked", FaultInternalPanic.String(),
					logging.String("panic", fmt.Sprint(rec)))
				s.result, s.ok = EmptyResult(), false
			}
		}()
		s.result, s.ok = o.hinted.submit(ctx, audio)
	}()
	return s
}

func (s *speculation) wait() (Result, bool) {
	<-s.done
	return s.result, s.ok
}

// execute walks the state machine to completion. It returns an error only when
// the context expired or every pass failed; the run is returned either way.
func (o *orchestrator) execute(ctx context.Context, audio *Audio, calls *atomic.Int32) (*run, error) {
	r := &run{state: StateStart, trail: []State{StateStart}, calls: calls}

	var spec *speculation
	defer func() {
		if spec != nil {
			spec.cancel()
			spec.wait()
		}
	}()

	for r.state != StateSelected {
		if err := ctx.Err(); err != nil {
			return r, services.Wrap(services.ErrTimeout, "pipeline", r.state.String(), "deadline exceeded", err)
		}
		switch r.state {
		case StateStart:
			if o.speculative {
				spec = o.speculate(ctx, audio)
				calls.Add(1)
			}
			result, ok := o.neutral.submit(ctx, audio)
			calls.Add(1)
			r.neutral = NewCandidate(PassNeutral, result, ok)
			r.advance(StateNeutralDone)

		case StateNeutralDone:
			if ShortCircuits(r.neutral) {
				if spec != nil {
					spec.cancel()
				}
				r.advance(StateShortCircuited)
				continue
			}
			var (
				result Result
				ok     bool
			)
			if spec != nil {
				result, ok = spec.wait()
			} else {
				result, ok = o.hinted.submit(ctx, audio)
				calls.Add(1)
			}
			hinted := NewCandidate(PassHinted, result, ok)
			r.hinted = &hinted
			r.advance(StateSecondPassDone)

		case StateShortCircuited, StateSecondPassDone:
			if !r.neutral.OK && (r.hinted == nil || !r.hinted.OK) {
				return r, ErrTotalFailure
			}
			r.outcome = Select(r.neutral, r.hinted, o.defaultLanguage)
			r.advance(StateSelected)

		default:
			return r, fmt.Errorf("orchestrator: unexpected state %s", r.state)
		}
	}
	return r, nil
}
