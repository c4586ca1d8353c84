// Package recovery implements the multi-level Chain of Responsibility that
// a failed agent execution walks through before the pipeline gives up and
// asks the operator for help: RETRY (re-run unchanged), FORK (drop attempt
// history, keep prior artifacts), FRESH (drop everything, start the stage
// over), ESCALATE (notify the operator and pause).
package recovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/ports"
)

// Chain attempts recovery levels in domain.RecoveryOrder until one
// succeeds or escalation is reached.
type Chain struct {
	agent     ports.AgentExecutor
	messenger ports.Messenger // optional: nil disables the escalation notification
}

// New constructs a Chain. messenger may be nil.
func New(agent ports.AgentExecutor, messenger ports.Messenger) *Chain {
	return &Chain{agent: agent, messenger: messenger}
}

// Recover walks the recovery chain for a failed request, returning the
// first successful level's result or an escalation outcome if every level
// fails.
func (c *Chain) Recover(ctx context.Context, request domain.AgentRequest, cause error) domain.RecoveryResult {
	slog.Warn("recovery chain triggered", "stage", request.Stage, "error", cause)

	for _, level := range domain.RecoveryOrder {
		if level == domain.RecoveryLevelEscalate {
			return c.escalate(ctx, request, cause)
		}

		result, err := c.attemptLevel(ctx, level, request)
		if err == nil {
			slog.Info("recovery succeeded", "level", level, "stage", request.Stage)
			return domain.RecoveryResult{Success: true, Level: level, Result: &result}
		}
		slog.Warn("recovery level failed", "level", level, "stage", request.Stage, "error", err)
	}

	return c.escalate(ctx, request, cause)
}

func (c *Chain) attemptLevel(ctx context.Context, level domain.RecoveryLevel, request domain.AgentRequest) (domain.AgentResult, error) {
	var attemptRequest domain.AgentRequest

	switch level {
	case domain.RecoveryLevelRetry:
		attemptRequest = request

	case domain.RecoveryLevelFork:
		// Keep prior artifacts but drop the attempt history — a fresh
		// session working from what the stage already produced.
		attemptRequest = domain.AgentRequest{
			Stage:                request.Stage,
			StageDescriptionPath: request.StageDescriptionPath,
			AgentPersonaPath:     request.AgentPersonaPath,
			PriorArtifacts:       request.PriorArtifacts,
			ElicitationContext:   request.ElicitationContext,
			WorkspacePath:        request.WorkspacePath,
		}

	case domain.RecoveryLevelFresh:
		// Drop prior artifacts and attempt history — start the stage over.
		attemptRequest = domain.AgentRequest{
			Stage:                request.Stage,
			StageDescriptionPath: request.StageDescriptionPath,
			AgentPersonaPath:     request.AgentPersonaPath,
			WorkspacePath:        request.WorkspacePath,
		}

	default:
		return domain.AgentResult{}, fmt.Errorf("unsupported recovery level %q", level)
	}

	return c.agent.Execute(ctx, attemptRequest)
}

func (c *Chain) escalate(ctx context.Context, request domain.AgentRequest, cause error) domain.RecoveryResult {
	message := fmt.Sprintf(
		"Pipeline needs help: stage %q failed after all recovery attempts.\nError: %v\nThe pipeline is paused awaiting your guidance.",
		request.Stage, cause,
	)

	if c.messenger != nil {
		if err := c.messenger.NotifyUser(ctx, message); err != nil {
			slog.Error("failed to send escalation notification", "error", err)
		}
	}

	slog.Error("recovery chain exhausted, escalating", "stage", request.Stage)
	return domain.RecoveryResult{
		Success:           false,
		Level:             domain.RecoveryLevelEscalate,
		EscalationMessage: message,
	}
}
