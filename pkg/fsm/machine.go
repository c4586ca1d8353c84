package fsm

import (
	"time"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/domain"
)

// Machine applies transitions to a RunState, producing a new, rebuilt
// instance on every call. It holds no state of its own.
type Machine struct{}

// NewMachine constructs a stateless transition applier.
func NewMachine() *Machine { return &Machine{} }

// ValidateTransition reports whether event can be applied to state without
// applying it.
func (m *Machine) ValidateTransition(state domain.RunState, event string) bool {
	if domain.IsTerminal(state.CurrentStage) {
		return false
	}
	return IsValidTransition(state.CurrentStage, event)
}

// Apply runs one FSM transition against state and returns the resulting
// RunState. state is never mutated; Apply always returns a fresh value.
// Returns a *pipelineerrors.ValidationError if the transition is undefined
// for the run's current stage.
func (m *Machine) Apply(state domain.RunState, event string) (domain.RunState, error) {
	if domain.IsTerminal(state.CurrentStage) {
		return domain.RunState{}, pipelineerrors.NewValidationError(
			"fsm_transition", errTerminalStage(state.CurrentStage))
	}

	next, ok := GetNextStage(state.CurrentStage, event)
	if !ok {
		return domain.RunState{}, pipelineerrors.NewValidationError(
			"fsm_transition", errUndefinedTransition(state.CurrentStage, event))
	}

	now := time.Now().UTC().Format(time.RFC3339)
	out := state.Clone()
	out.UpdatedAt = now

	switch event {
	case domain.EventQAPass:
		out.StagesCompleted = append(out.StagesCompleted, string(state.CurrentStage))
		out.CurrentStage = next
		out.CurrentAttempt = 1
		out.QAStatus = domain.QAStatusPending

	case domain.EventQARework:
		out.CurrentAttempt = state.CurrentAttempt + 1
		out.QAStatus = domain.QAStatusRework

	case domain.EventQAFail:
		out.QAStatus = domain.QAStatusFailed

	case domain.EventStageComplete:
		out.StagesCompleted = append(out.StagesCompleted, string(state.CurrentStage))
		out.CurrentStage = next

	case domain.EventUnrecoverableError:
		out.CurrentStage = domain.StageFailed
		out.QAStatus = domain.QAStatusFailed

	case domain.EventEscalationRequested:
		out.EscalationState = domain.EscalationLayoutUnknown

	case domain.EventEscalationResolved:
		out.EscalationState = domain.EscalationNone
		out.QAStatus = domain.QAStatusPending

	default:
		out.CurrentStage = next
	}

	return out, nil
}

func errTerminalStage(stage domain.Stage) error {
	return &terminalStageError{stage: stage}
}

type terminalStageError struct{ stage domain.Stage }

func (e *terminalStageError) Error() string {
	return "cannot transition from terminal stage " + string(e.stage)
}

func errUndefinedTransition(stage domain.Stage, event string) error {
	return &undefinedTransitionError{stage: stage, event: event}
}

type undefinedTransitionError struct {
	stage domain.Stage
	event string
}

func (e *undefinedTransitionError) Error() string {
	return "invalid transition: (" + string(e.stage) + ", " + e.event + ")"
}
