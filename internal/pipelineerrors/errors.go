// Package pipelineerrors defines the typed error hierarchy shared across the
// pipeline core. Each kind is distinguishable at runtime via errors.As so
// callers (the recovery chain, the consumer loop) can route on error kind
// without string matching.
package pipelineerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is comparisons where no extra context is needed.
var (
	// ErrNotFound indicates a requested entity (run, queue item) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNothingToDo indicates a queue poll found no claimable item.
	ErrNothingToDo = errors.New("nothing to do")

	// ErrAtCapacity indicates the consumer is already at its concurrency ceiling.
	ErrAtCapacity = errors.New("at capacity")
)

// ConfigurationError indicates a fatal, at-boot configuration problem: bad
// env vars, missing paths, mutually required settings left unset.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError wraps err with the offending field name.
func NewConfigurationError(field string, err error) error {
	return &ConfigurationError{Field: field, Err: err}
}

// ValidationError indicates a structural failure parsing a value: FSM
// input, QA JSON, state-store front-matter. Never retried directly; it
// either bubbles to the reflection loop as a REWORK signal (when produced
// by an agent) or to the top level (when produced by the core itself).
type ValidationError struct {
	Subject string // what failed to validate, e.g. "run_state", "fsm_transition"
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %v", e.Subject, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps err with the subject that failed validation.
func NewValidationError(subject string, err error) error {
	return &ValidationError{Subject: subject, Err: err}
}

// AgentExecutionError indicates a subprocess failure: timeout, nonzero
// exit, or unparseable stdout. Enters the recovery chain.
type AgentExecutionError struct {
	Stage string
	Err   error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent execution failed for stage %s: %v", e.Stage, e.Err)
}

func (e *AgentExecutionError) Unwrap() error { return e.Err }

// NewAgentExecutionError wraps err with the stage that was executing.
func NewAgentExecutionError(stage string, err error) error {
	return &AgentExecutionError{Stage: stage, Err: err}
}

// QAError indicates the QA model emitted something unparseable. Treated as
// an agent-execution failure for recovery purposes.
type QAError struct {
	Gate string
	Err  error
}

func (e *QAError) Error() string {
	return fmt.Sprintf("qa gate %s: %v", e.Gate, e.Err)
}

func (e *QAError) Unwrap() error { return e.Err }

// NewQAError wraps err with the gate name that failed to parse.
func NewQAError(gate string, err error) error {
	return &QAError{Gate: gate, Err: err}
}

// UnknownLayoutError is raised when the layout-escalation collaborator has
// no interactive fallback available. Bubbles as a pipeline error; the run
// is marked failed.
type UnknownLayoutError struct {
	Detail string
}

func (e *UnknownLayoutError) Error() string {
	return fmt.Sprintf("unknown layout: %s", e.Detail)
}

// NewUnknownLayoutError constructs an UnknownLayoutError.
func NewUnknownLayoutError(detail string) error {
	return &UnknownLayoutError{Detail: detail}
}

// OSIOError wraps a filesystem or network error encountered on a port.
// Inside a stage it enters the recovery chain; inside queue operations it
// is logged and the individual file is skipped.
type OSIOError struct {
	Op  string
	Err error
}

func (e *OSIOError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *OSIOError) Unwrap() error { return e.Err }

// NewOSIOError wraps err with the operation that failed.
func NewOSIOError(op string, err error) error {
	return &OSIOError{Op: op, Err: err}
}

// IsRetryable reports whether err is an AgentExecutionError, QAError, or
// OSIOError. pkg/recovery does not call it: the recovery chain moves to
// its next level on any error.
func IsRetryable(err error) bool {
	var agentErr *AgentExecutionError
	var qaErr *QAError
	var ioErr *OSIOError
	return errors.As(err, &agentErr) || errors.As(err, &qaErr) || errors.As(err, &ioErr)
}
