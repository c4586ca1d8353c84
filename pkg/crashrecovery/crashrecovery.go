// Package crashrecovery scans for runs that were interrupted mid-pipeline
// (process killed, host rebooted) and computes where each should resume
// from, so the consumer can resume them instead of leaving them
// stranded in a non-terminal state forever.
package crashrecovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/ports"
)

// Handler scans the state store for incomplete runs at startup and builds
// a resume plan for each one.
type Handler struct {
	store     ports.StateStore
	messenger ports.Messenger // optional: nil disables resume notifications
}

// New constructs a Handler. messenger may be nil.
func New(store ports.StateStore, messenger ports.Messenger) *Handler {
	return &Handler{store: store, messenger: messenger}
}

// ScanAndRecover lists every non-terminal run and builds a RecoveryPlan for
// it. Runs whose state is internally inconsistent (every known stage
// already completed, yet the run isn't terminal) are logged and skipped
// rather than guessed at.
func (h *Handler) ScanAndRecover(ctx context.Context) ([]domain.RecoveryPlan, error) {
	states, err := h.store.ListIncomplete()
	if err != nil {
		return nil, fmt.Errorf("list incomplete runs: %w", err)
	}

	plans := make([]domain.RecoveryPlan, 0, len(states))
	for _, state := range states {
		plan, ok := buildRecoveryPlan(state)
		if !ok {
			slog.Warn("run has no resumable stage despite being non-terminal",
				"run_id", state.RunID, "current_stage", state.CurrentStage)
			continue
		}

		slog.Info("found resumable run",
			"run_id", plan.RunState.RunID, "resume_from", plan.ResumeFrom, "stages_done", plan.StagesAlreadyDone)

		if h.messenger != nil {
			h.notifyResume(ctx, plan)
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (h *Handler) notifyResume(ctx context.Context, plan domain.RecoveryPlan) {
	message := fmt.Sprintf(
		"Resuming interrupted run %s from stage %q (%d of %d stages already done).",
		plan.RunState.RunID, plan.ResumeFrom, plan.StagesAlreadyDone, len(domain.StageOrder),
	)
	if err := h.messenger.NotifyUser(ctx, message); err != nil {
		slog.Error("failed to send resume notification", "run_id", plan.RunState.RunID, "error", err)
	}
}

// buildRecoveryPlan intersects state.StagesCompleted with the known stage
// order to find the first stage not yet completed. ok is false when every
// known stage is already marked complete but the run state still isn't
// terminal — an inconsistency the caller should log rather than resume
// blindly from.
func buildRecoveryPlan(state domain.RunState) (domain.RecoveryPlan, bool) {
	completed := make(map[string]bool, len(state.StagesCompleted))
	for _, s := range state.StagesCompleted {
		completed[s] = true
	}

	for i, stage := range domain.StageOrder {
		if completed[string(stage)] {
			continue
		}
		return domain.RecoveryPlan{
			RunState:          state,
			ResumeFrom:        stage,
			StagesRemaining:   domain.StageOrder[i:],
			StagesAlreadyDone: i,
		}, true
	}

	return domain.RecoveryPlan{}, false
}
