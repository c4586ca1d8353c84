// Package fsm holds the pipeline state machine: a pure transition table
// from (stage, event) to the next stage, plus the logic that applies a
// transition to a RunState and returns a new, rebuilt value. None of this
// package touches disk or the network.
package fsm

import "github.com/reelforge/pipeline/pkg/domain"

type transitionKey struct {
	stage domain.Stage
	event string
}

// transitions is the (stage, event) -> next stage table. Rework and fail
// events keep the run on the same stage; the recovery chain and reflection
// loop decide what happens next.
var transitions = map[transitionKey]domain.Stage{
	{domain.StageRouter, domain.EventQAPass}:            domain.StageResearch,
	{domain.StageResearch, domain.EventQAPass}:          domain.StageTranscript,
	{domain.StageTranscript, domain.EventQAPass}:        domain.StageContent,
	{domain.StageContent, domain.EventQAPass}:           domain.StageLayoutDetective,
	{domain.StageLayoutDetective, domain.EventQAPass}:   domain.StageFFmpegEngineer,
	{domain.StageFFmpegEngineer, domain.EventQAPass}:    domain.StageVeo3Await,
	{domain.StageVeo3Await, domain.EventStageComplete}:  domain.StageAssembly,
	{domain.StageAssembly, domain.EventQAPass}:          domain.StageDelivery,
	{domain.StageDelivery, domain.EventStageComplete}:   domain.StageCompleted,
}

// reworkableStages loop back onto themselves on qa_rework and qa_fail.
var reworkableStages = []domain.Stage{
	domain.StageRouter,
	domain.StageResearch,
	domain.StageTranscript,
	domain.StageContent,
	domain.StageLayoutDetective,
	domain.StageFFmpegEngineer,
	domain.StageAssembly,
}

func init() {
	for _, s := range reworkableStages {
		transitions[transitionKey{s, domain.EventQARework}] = s
		transitions[transitionKey{s, domain.EventQAFail}] = s
	}
	for _, s := range domain.StageOrder {
		transitions[transitionKey{s, domain.EventUnrecoverableError}] = domain.StageFailed
	}
	transitions[transitionKey{domain.StageLayoutDetective, domain.EventEscalationRequested}] = domain.StageLayoutDetective
	transitions[transitionKey{domain.StageLayoutDetective, domain.EventEscalationResolved}] = domain.StageLayoutDetective
}

// IsValidTransition reports whether (stage, event) has an entry in the table.
func IsValidTransition(stage domain.Stage, event string) bool {
	_, ok := transitions[transitionKey{stage, event}]
	return ok
}

// GetNextStage looks up the next stage for (stage, event). The second
// return value is false when no such transition is defined.
func GetNextStage(stage domain.Stage, event string) (domain.Stage, bool) {
	next, ok := transitions[transitionKey{stage, event}]
	return next, ok
}

type framingKey struct {
	state domain.FramingStyleState
	event string
}

// framingTransitions drives the in-stage framing-style FSM (layout_detective
// picks a shot composition based on face count and explicit requests). It
// never touches RunState — it is local state the ffmpeg_engineer stage
// consults when deciding how to lay out the frame.
var framingTransitions = map[framingKey]domain.FramingStyleState{
	{domain.FramingSolo, "face_count_increase"}:     domain.FramingDuoSplit,
	{domain.FramingDuoSplit, "face_count_decrease"}: domain.FramingSolo,
	{domain.FramingDuoPip, "face_count_decrease"}:   domain.FramingSolo,

	{domain.FramingDuoSplit, "pip_requested"}: domain.FramingDuoPip,
	{domain.FramingDuoPip, "split_requested"}: domain.FramingDuoSplit,

	{domain.FramingSolo, "screen_share_detected"}:      domain.FramingScreenShare,
	{domain.FramingDuoSplit, "screen_share_detected"}:  domain.FramingScreenShare,
	{domain.FramingDuoPip, "screen_share_detected"}:    domain.FramingScreenShare,
	{domain.FramingScreenShare, "face_count_increase"}: domain.FramingDuoSplit,
	{domain.FramingScreenShare, "screen_share_ended"}:  domain.FramingSolo,

	{domain.FramingSolo, "cinematic_requested"}:            domain.FramingCinematicSolo,
	{domain.FramingCinematicSolo, "face_count_increase"}:   domain.FramingDuoSplit,
	{domain.FramingCinematicSolo, "screen_share_detected"}: domain.FramingScreenShare,
}

// GetFramingState looks up the next framing state for (current, event).
func GetFramingState(current domain.FramingStyleState, event string) (domain.FramingStyleState, bool) {
	next, ok := framingTransitions[framingKey{current, event}]
	return next, ok
}

// IsValidFramingTransition reports whether a framing transition is defined.
func IsValidFramingTransition(current domain.FramingStyleState, event string) bool {
	_, ok := framingTransitions[framingKey{current, event}]
	return ok
}

// MaxQAAttempts is the number of generator-critic attempts the reflection
// loop makes before falling back to best-of-three selection.
const MaxQAAttempts = 3
