package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipeline/pkg/domain"
)

func TestApply_QAPassAdvancesStage(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{
		RunID:        "run-1",
		CurrentStage: domain.StageRouter,
		QAStatus:     domain.QAStatusPassed,
	}

	next, err := m.Apply(state, domain.EventQAPass)

	require.NoError(t, err)
	assert.Equal(t, domain.StageResearch, next.CurrentStage)
	assert.Equal(t, domain.QAStatusPending, next.QAStatus)
	assert.Equal(t, 1, next.CurrentAttempt)
	assert.Contains(t, next.StagesCompleted, string(domain.StageRouter))
}

func TestApply_QAReworkIncrementsAttempt(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{CurrentStage: domain.StageContent, CurrentAttempt: 1}

	next, err := m.Apply(state, domain.EventQARework)

	require.NoError(t, err)
	assert.Equal(t, domain.StageContent, next.CurrentStage)
	assert.Equal(t, 2, next.CurrentAttempt)
	assert.Equal(t, domain.QAStatusRework, next.QAStatus)
}

func TestApply_VeoAwaitCompletesIntoAssembly(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{CurrentStage: domain.StageVeo3Await}

	next, err := m.Apply(state, domain.EventStageComplete)

	require.NoError(t, err)
	assert.Equal(t, domain.StageAssembly, next.CurrentStage)
}

func TestApply_UnrecoverableErrorGoesToFailed(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{CurrentStage: domain.StageFFmpegEngineer}

	next, err := m.Apply(state, domain.EventUnrecoverableError)

	require.NoError(t, err)
	assert.Equal(t, domain.StageFailed, next.CurrentStage)
	assert.Equal(t, domain.QAStatusFailed, next.QAStatus)
}

func TestApply_TerminalStageRejectsAnyEvent(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{CurrentStage: domain.StageCompleted}

	_, err := m.Apply(state, domain.EventQAPass)

	require.Error(t, err)
}

func TestApply_UndefinedTransitionReturnsValidationError(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{CurrentStage: domain.StageRouter}

	_, err := m.Apply(state, "not_a_real_event")

	require.Error(t, err)
	assert.False(t, m.ValidateTransition(state, "not_a_real_event"))
}

func TestApply_EscalationRoundTrip(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{CurrentStage: domain.StageLayoutDetective}

	requested, err := m.Apply(state, domain.EventEscalationRequested)
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationLayoutUnknown, requested.EscalationState)

	resolved, err := m.Apply(requested, domain.EventEscalationResolved)
	require.NoError(t, err)
	assert.Equal(t, domain.EscalationNone, resolved.EscalationState)
	assert.Equal(t, domain.QAStatusPending, resolved.QAStatus)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	m := NewMachine()
	state := domain.RunState{
		CurrentStage:    domain.StageRouter,
		StagesCompleted: []string{},
	}

	_, err := m.Apply(state, domain.EventQAPass)

	require.NoError(t, err)
	assert.Empty(t, state.StagesCompleted, "Apply must not mutate the caller's slice")
}

func TestFramingTransitions(t *testing.T) {
	next, ok := GetFramingState(domain.FramingSolo, "face_count_increase")
	require.True(t, ok)
	assert.Equal(t, domain.FramingDuoSplit, next)

	_, ok = GetFramingState(domain.FramingCinematicSolo, "pip_requested")
	assert.False(t, ok)
}
