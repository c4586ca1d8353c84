// Package agentexec implements ports.AgentExecutor by shelling out to a
// BMAD-style agent CLI, one subprocess per stage. It mirrors the
// original pipeline's CliBackend adapter (referenced, but not shipped, as
// infrastructure/adapters/claude_cli_backend.py): an AgentRequest is
// serialized to JSON on the child's stdin, and the child writes an
// AgentResult back as JSON on stdout.
package agentexec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/domain"
)

// Config configures how the agent subprocess is launched.
type Config struct {
	// Command is the agent CLI binary, e.g. the path to a "bmad-agent"
	// or "claude" wrapper script.
	Command string
	// Args are static arguments prepended to every invocation, before
	// the per-stage flags this package appends.
	Args []string
	// Env holds extra environment variables merged over os.Environ().
	Env map[string]string
	// Timeout bounds a single subprocess run. Zero means no deadline
	// beyond the caller's context.
	Timeout time.Duration
}

// Executor runs one agent subprocess per Execute call.
type Executor struct {
	cfg Config
}

// New constructs an Executor from cfg.
func New(cfg Config) *Executor {
	return &Executor{cfg: cfg}
}

// wireRequest is the JSON payload written to the child's stdin.
type wireRequest struct {
	Stage                string              `json:"stage"`
	StageDescriptionPath string              `json:"stage_description_path"`
	AgentPersonaPath     string              `json:"agent_persona_path"`
	WorkspacePath        string              `json:"workspace_path"`
	PriorArtifacts       []string            `json:"prior_artifacts,omitempty"`
	ElicitationContext   map[string]string   `json:"elicitation_context,omitempty"`
	AttemptHistory       []map[string]string `json:"attempt_history,omitempty"`
}

// wireResult is the JSON payload the child writes to stdout on success.
type wireResult struct {
	Status          string   `json:"status"`
	Artifacts       []string `json:"artifacts"`
	SessionID       string   `json:"session_id"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// Execute runs the configured agent CLI for request.Stage, feeding it
// request as JSON on stdin and parsing its stdout as a wireResult.
func (e *Executor) Execute(ctx context.Context, request domain.AgentRequest) (domain.AgentResult, error) {
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(wireRequest{
		Stage:                string(request.Stage),
		StageDescriptionPath: request.StageDescriptionPath,
		AgentPersonaPath:     request.AgentPersonaPath,
		WorkspacePath:        request.WorkspacePath,
		PriorArtifacts:       request.PriorArtifacts,
		ElicitationContext:   request.ElicitationContext,
		AttemptHistory:       request.AttemptHistory,
	})
	if err != nil {
		return domain.AgentResult{}, pipelineerrors.NewAgentExecutionError(string(request.Stage), fmt.Errorf("marshal agent request: %w", err))
	}

	args := append(append([]string(nil), e.cfg.Args...),
		"--stage", string(request.Stage),
		"--description", request.StageDescriptionPath,
		"--persona", request.AgentPersonaPath,
	)

	cmd := exec.CommandContext(ctx, e.cfg.Command, args...)
	cmd.Dir = request.WorkspacePath
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = mergeEnv(e.cfg.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.AgentResult{}, pipelineerrors.NewAgentExecutionError(string(request.Stage),
			fmt.Errorf("timed out after %s: %s", time.Since(start), stderr.String()))
	}
	if runErr != nil {
		return domain.AgentResult{}, pipelineerrors.NewAgentExecutionError(string(request.Stage),
			fmt.Errorf("%w: %s", runErr, stderr.String()))
	}

	var result wireResult
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return domain.AgentResult{}, pipelineerrors.NewAgentExecutionError(string(request.Stage),
			fmt.Errorf("parse agent stdout: %w", err))
	}

	return domain.NewAgentResult(result.Status, result.Artifacts, result.SessionID, result.DurationSeconds)
}

// mergeEnv overlays extra on top of the parent process's environment.
func mergeEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
