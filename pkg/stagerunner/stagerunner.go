// Package stagerunner orchestrates a single pipeline stage through the
// full execute -> QA -> recovery cycle, publishing lifecycle events along
// the way. State machine transitions are the caller's responsibility —
// this package only runs the work for one stage and reports what happened.
package stagerunner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/eventbus"
	"github.com/reelforge/pipeline/pkg/recovery"
	"github.com/reelforge/pipeline/pkg/reflection"
)

// Runner runs one stage's reflection loop, falling back to the recovery
// chain on failure and retrying the reflection loop once recovery
// succeeds.
type Runner struct {
	reflection *reflection.Loop
	recovery   *recovery.Chain
	events     *eventbus.Bus
}

// New constructs a Runner.
func New(reflectionLoop *reflection.Loop, recoveryChain *recovery.Chain, events *eventbus.Bus) *Runner {
	return &Runner{reflection: reflectionLoop, recovery: recoveryChain, events: events}
}

// RunStage executes request through the reflection loop. If the loop
// returns an error, the recovery chain is given one attempt to repair the
// situation before the reflection loop is retried once more; if recovery
// itself fails (or never recovers a usable agent result), the original
// error is returned to the caller, which marks the run failed.
func (r *Runner) RunStage(ctx context.Context, request domain.AgentRequest, gate, gateCriteria string) (domain.ReflectionResult, error) {
	stage := request.Stage
	slog.Info("starting stage", "stage", stage)

	r.publish(ctx, domain.EventStageEntered, stage, nil)

	result, err := r.reflection.Run(ctx, request, gate, gateCriteria)
	if err != nil {
		slog.Error("stage failed", "stage", stage, "error", err)

		recoveryResult := r.recovery.Recover(ctx, request, err)
		if !recoveryResult.Success {
			r.publish(ctx, domain.EventRunFailed, stage, map[string]any{"reason": err.Error()})
			return domain.ReflectionResult{}, fmt.Errorf("recovery exhausted for stage %s: %w", stage, err)
		}

		slog.Info("recovery succeeded", "stage", stage, "level", recoveryResult.Level)
		result, err = r.reflection.Run(ctx, request, gate, gateCriteria)
		if err != nil {
			r.publish(ctx, domain.EventRunFailed, stage, map[string]any{"reason": err.Error()})
			return domain.ReflectionResult{}, fmt.Errorf("stage %s failed even after recovery: %w", stage, err)
		}
	}

	r.publish(ctx, domain.EventStageCompleted, stage, map[string]any{
		"score":    result.BestCritique.Score,
		"decision": result.BestCritique.Decision,
	})

	slog.Info("stage completed", "stage", stage, "decision", result.BestCritique.Decision, "score", result.BestCritique.Score)
	return result, nil
}

func (r *Runner) publish(ctx context.Context, name string, stage domain.Stage, data map[string]any) {
	r.events.Publish(ctx, domain.PipelineEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Name:      name,
		Stage:     &stage,
		Data:      data,
	})
}
