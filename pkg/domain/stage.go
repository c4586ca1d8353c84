// Package domain holds the immutable value types shared across the
// pipeline core: RunState, the stage enumeration, queue items, agent
// request/result pairs, QA critiques, and pipeline events. Values here are
// never mutated in place — a transition produces a new value, per the
// "immutability via rebuild" design note.
package domain

// Stage identifies one atomic unit of work in the pipeline.
type Stage string

// Stage enumeration, in canonical forward order. VeoAwait sits between
// FFmpegEngineer and Assembly — it is not QA-gated (see StageOrder and
// NonQAGatedStages).
const (
	StageRouter          Stage = "router"
	StageResearch        Stage = "research"
	StageTranscript      Stage = "transcript"
	StageContent         Stage = "content"
	StageLayoutDetective Stage = "layout_detective"
	StageFFmpegEngineer  Stage = "ffmpeg_engineer"
	StageVeo3Await       Stage = "veo3_await"
	StageAssembly        Stage = "assembly"
	StageDelivery        Stage = "delivery"
	StageCompleted       Stage = "completed"
	StageFailed          Stage = "failed"
)

// StageOrder is the canonical processing sequence, excluding the terminal
// states. veo3_await is included per the resolved Open Question in
// SPEC_FULL.md — implementations must keep this list and the crash
// recovery scanner's notion of "known stages" in agreement.
var StageOrder = []Stage{
	StageRouter,
	StageResearch,
	StageTranscript,
	StageContent,
	StageLayoutDetective,
	StageFFmpegEngineer,
	StageVeo3Await,
	StageAssembly,
	StageDelivery,
}

// TerminalStages have no outgoing transitions.
var TerminalStages = map[Stage]bool{
	StageCompleted: true,
	StageFailed:    true,
}

// IsTerminal reports whether stage is a terminal state.
func IsTerminal(stage Stage) bool {
	return TerminalStages[stage]
}

// NonQAGatedStages lists stages the pipeline runner advances through
// without invoking the reflection loop: veo3_await, which waits on an
// opaque external generation job rather than grading an agent's
// artifacts, and delivery, which uploads a finished file and has nothing
// left to critique. Neither appears in pkg/fsm's reworkableStages list,
// for the same reason.
var NonQAGatedStages = map[Stage]bool{
	StageVeo3Await: true,
	StageDelivery:  true,
}

// QAStatus is the QA evaluation status for the current pipeline stage.
type QAStatus string

const (
	QAStatusPending QAStatus = "pending"
	QAStatusPassed  QAStatus = "passed"
	QAStatusRework  QAStatus = "rework"
	QAStatusFailed  QAStatus = "failed"
)

// EscalationState is a pipeline-level escalation flag.
type EscalationState string

const (
	EscalationNone           EscalationState = "none"
	EscalationLayoutUnknown  EscalationState = "layout_unknown"
	EscalationQAExhausted    EscalationState = "qa_exhausted"
	EscalationErrorEscalated EscalationState = "error_escalated"
)

// QADecision is the verdict of a single QA gate evaluation.
type QADecision string

const (
	QADecisionPass   QADecision = "PASS"
	QADecisionRework QADecision = "REWORK"
	QADecisionFail   QADecision = "FAIL"
)

// FramingStyleState is the runtime state of the in-stage framing FSM (see
// pkg/fsm). It never touches RunState.
type FramingStyleState string

const (
	FramingSolo          FramingStyleState = "solo"
	FramingDuoSplit      FramingStyleState = "duo_split"
	FramingDuoPip        FramingStyleState = "duo_pip"
	FramingScreenShare   FramingStyleState = "screen_share"
	FramingCinematicSolo FramingStyleState = "cinematic_solo"
)

// Event names published on the event bus (pkg/eventbus).
const (
	EventStageEntered   = "pipeline.stage_entered"
	EventStageCompleted = "pipeline.stage_completed"
	EventRunStarted     = "pipeline.run_started"
	EventRunCompleted   = "pipeline.run_completed"
	EventRunFailed      = "pipeline.run_failed"
	EventQAGatePassed   = "qa.gate_passed"
)

// Transition events accepted by the state machine (pkg/fsm).
const (
	EventQAPass              = "qa_pass"
	EventQARework            = "qa_rework"
	EventQAFail              = "qa_fail"
	EventStageComplete       = "stage_complete"
	EventUnrecoverableError  = "unrecoverable_error"
	EventEscalationRequested = "escalation_requested"
	EventEscalationResolved  = "escalation_resolved"
)
