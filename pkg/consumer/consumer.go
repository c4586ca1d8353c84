// Package consumer is the top-level driver: it polls the file-backed
// queue for new YouTube URLs, resumes interrupted runs found by the
// crash-recovery scanner, and walks each run through every pipeline
// stage via the stage runner, persisting a checkpoint after each one.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/crashrecovery"
	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/eventbus"
	"github.com/reelforge/pipeline/pkg/fsm"
	"github.com/reelforge/pipeline/pkg/ports"
	"github.com/reelforge/pipeline/pkg/queue"
	"github.com/reelforge/pipeline/pkg/stagerunner"
	"github.com/reelforge/pipeline/pkg/statestore"
	"github.com/reelforge/pipeline/pkg/throttle"
	"github.com/reelforge/pipeline/pkg/workspace"
)

// StageConfig resolves the description/persona file paths an AgentRequest
// needs for a given stage. Production wiring points this at the on-disk
// BMAD agent definitions; tests can supply a trivial stub.
type StageConfig interface {
	DescriptionPath(stage domain.Stage) string
	PersonaPath(stage domain.Stage) string
	Gate(stage domain.Stage) (gate, criteria string)
}

// Runner polls the queue and drives claimed items through every pipeline
// stage. It mirrors the poll-claim-process-complete shape of a standard
// queue worker, generalized from single-session processing to a
// multi-stage run.
type Runner struct {
	queue        *queue.Queue
	workspaces   *workspace.Manager
	store        *statestore.Store
	stages       StageConfig
	agent        ports.AgentExecutor
	stageRunner  *stagerunner.Runner
	machine      *fsm.Machine
	events       *eventbus.Bus
	throttler    *throttle.Throttler
	crash        *crashrecovery.Handler
	messenger    ports.Messenger // optional
	watchdog     ports.Watchdog  // optional
	pollInterval time.Duration
	pollJitter   time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Config bundles Runner's collaborators. Messenger and Watchdog may be nil.
type Config struct {
	Queue        *queue.Queue
	Workspaces   *workspace.Manager
	Store        *statestore.Store
	Stages       StageConfig
	Agent        ports.AgentExecutor
	StageRunner  *stagerunner.Runner
	Events       *eventbus.Bus
	Throttler    *throttle.Throttler
	Crash        *crashrecovery.Handler
	Messenger    ports.Messenger
	Watchdog     ports.Watchdog
	PollInterval time.Duration
	PollJitter   time.Duration
}

// New constructs a Runner from cfg, filling in sensible poll defaults.
func New(cfg Config) *Runner {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &Runner{
		queue:        cfg.Queue,
		workspaces:   cfg.Workspaces,
		store:        cfg.Store,
		stages:       cfg.Stages,
		agent:        cfg.Agent,
		stageRunner:  cfg.StageRunner,
		machine:      fsm.NewMachine(),
		events:       cfg.Events,
		throttler:    cfg.Throttler,
		crash:        cfg.Crash,
		messenger:    cfg.Messenger,
		watchdog:     cfg.Watchdog,
		pollInterval: pollInterval,
		pollJitter:   cfg.PollJitter,
		stopCh:       make(chan struct{}),
	}
}

// Start runs crash recovery once and then begins the polling loop in a
// background goroutine.
func (r *Runner) Start(ctx context.Context) {
	if r.watchdog != nil {
		if err := r.watchdog.Ready(); err != nil {
			slog.Warn("watchdog ready notification failed", "error", err)
		}
	}

	if r.crash != nil {
		plans, err := r.crash.ScanAndRecover(ctx)
		if err != nil {
			slog.Error("crash recovery scan failed", "error", err)
		}
		r.resumeRecoveredRuns(ctx, plans)
	}

	r.wg.Add(1)
	go r.run(ctx)
}

// resumeRecoveredRuns drives every plan found by the crash-recovery scan
// through processRun, serially and before the steady-state poll loop
// starts, per spec.md §4.12 step 1. Each plan's RunState already records
// the correct CurrentStage to resume from; processRun picks up from there
// the same way it would for a freshly claimed queue item.
func (r *Runner) resumeRecoveredRuns(ctx context.Context, plans []domain.RecoveryPlan) {
	for _, plan := range plans {
		slog.Info("resuming recovered run", "run_id", plan.RunState.RunID, "resume_from", plan.ResumeFrom)
		if _, err := r.processRun(ctx, plan.RunState); err != nil {
			slog.Error("resumed run failed", "run_id", plan.RunState.RunID, "error", err)
		}
	}
}

// Stop signals the poll loop to exit and waits for it to finish. Safe to
// call more than once.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	if r.watchdog != nil {
		if err := r.watchdog.Stopping(); err != nil {
			slog.Warn("watchdog stopping notification failed", "error", err)
		}
	}
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()
	slog.Info("consumer started")

	for {
		select {
		case <-r.stopCh:
			slog.Info("consumer shutting down")
			return
		case <-ctx.Done():
			slog.Info("context cancelled, consumer shutting down")
			return
		default:
			if err := r.pollAndProcess(ctx); err != nil {
				if errors.Is(err, pipelineerrors.ErrNothingToDo) {
					r.sleep(r.jitteredInterval())
					continue
				}
				slog.Error("error processing queue item", "error", err)
				r.sleep(time.Second)
			}
		}
	}
}

func (r *Runner) sleep(d time.Duration) {
	select {
	case <-r.stopCh:
	case <-time.After(d):
	}
}

func (r *Runner) jitteredInterval() time.Duration {
	if r.pollJitter <= 0 {
		return r.pollInterval
	}
	offset := time.Duration(rand.Int64N(int64(2 * r.pollJitter)))
	return r.pollInterval - r.pollJitter + offset
}

// pollAndProcess waits out any resource pressure, claims the next queue
// item, and drives it through every pipeline stage.
func (r *Runner) pollAndProcess(ctx context.Context) error {
	if r.throttler != nil {
		if err := r.throttler.WaitForResources(ctx); err != nil {
			return fmt.Errorf("wait for resources: %w", err)
		}
	}

	claimed, err := r.queue.ClaimNext()
	if err != nil {
		return err
	}

	workspacePath, err := r.workspaces.Create()
	if err != nil {
		_, _ = r.queue.Fail(claimed.Path)
		return fmt.Errorf("create workspace: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	state, err := domain.NewRunState(domain.RunState{
		RunID:          runIDFromWorkspace(workspacePath),
		YouTubeURL:     claimed.Item.URL,
		CurrentStage:   domain.StageRouter,
		CurrentAttempt: 1,
		QAStatus:       domain.QAStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
		WorkspacePath:  workspacePath,
	})
	if err != nil {
		_, _ = r.queue.Fail(claimed.Path)
		return fmt.Errorf("build run state: %w", err)
	}

	paused, err := r.processRun(ctx, state)
	if err != nil {
		_, _ = r.queue.Fail(claimed.Path)
		return fmt.Errorf("process run %s: %w", state.RunID, err)
	}

	if paused {
		// Escalation left the run mid-pipeline: keep the queue file in
		// processing/ so a later crash-recovery resume picks it back up,
		// per spec.md §4.12 step 4.
		return nil
	}

	_, err = r.queue.Complete(claimed.Path)
	return err
}

// processRun walks state from its current stage through to completion,
// persisting a checkpoint before each stage and after every stage
// transition. The returned bool
// is true when the run paused mid-pipeline for operator escalation rather
// than running to completion — the caller must not treat that as "done".
func (r *Runner) processRun(ctx context.Context, state domain.RunState) (bool, error) {
	r.publish(ctx, domain.EventRunStarted, state.CurrentStage, map[string]any{"run_id": state.RunID})

	for !domain.IsTerminal(state.CurrentStage) {
		stage := state.CurrentStage
		if err := r.store.Save(state); err != nil {
			slog.Error("failed to persist run state", "run_id", state.RunID, "error", err)
		}
		request := domain.AgentRequest{
			Stage:                stage,
			StageDescriptionPath: r.stages.DescriptionPath(stage),
			AgentPersonaPath:     r.stages.PersonaPath(stage),
			WorkspacePath:        state.WorkspacePath,
		}

		next, err := r.runOneStage(ctx, state, request)
		if err != nil {
			failed, ferr := r.machine.Apply(state, domain.EventUnrecoverableError)
			if ferr == nil {
				state = failed
				_ = r.store.Save(state)
			}
			r.publish(ctx, domain.EventRunFailed, stage, map[string]any{"reason": err.Error()})
			return false, err
		}

		state = next
		if err := r.store.Save(state); err != nil {
			slog.Error("failed to persist run state", "run_id", state.RunID, "error", err)
		}

		if r.watchdog != nil {
			if err := r.watchdog.Heartbeat(); err != nil {
				slog.Warn("watchdog heartbeat failed", "error", err)
			}
		}

		if state.EscalationState != domain.EscalationNone {
			slog.Warn("run paused for escalation", "run_id", state.RunID, "stage", state.CurrentStage)
			return true, nil
		}
	}

	r.publish(ctx, domain.EventRunCompleted, state.CurrentStage, map[string]any{"run_id": state.RunID})
	return false, nil
}

// runOneStage executes a single stage and returns the RunState that
// results from applying the corresponding FSM event.
func (r *Runner) runOneStage(ctx context.Context, state domain.RunState, request domain.AgentRequest) (domain.RunState, error) {
	if domain.NonQAGatedStages[request.Stage] {
		result, err := r.agent.Execute(ctx, request)
		if err != nil {
			return domain.RunState{}, fmt.Errorf("stage %s: %w", request.Stage, err)
		}
		if result.Status != "ok" && result.Status != "" {
			return domain.RunState{}, fmt.Errorf("stage %s returned status %q", request.Stage, result.Status)
		}
		return r.machine.Apply(state, domain.EventStageComplete)
	}

	gate, criteria := r.stages.Gate(request.Stage)
	result, err := r.stageRunner.RunStage(ctx, request, gate, criteria)
	if err != nil {
		return domain.RunState{}, err
	}

	if result.EscalationNeeded {
		// Best-of-three never cleared the minimum score: pause here rather
		// than advancing, regardless of whether this stage also defines its
		// own escalation transition (only layout_detective does, for its
		// unknown-layout case, which is a distinct trigger from QA
		// exhaustion).
		return r.pauseForQAExhaustion(state), nil
	}
	return r.machine.Apply(state, domain.EventQAPass)
}

// pauseForQAExhaustion marks a run paused for operator attention after the
// reflection loop's best-of-three selection still falls below the minimum
// score. It does not advance CurrentStage, so a resolved run resumes the
// reflection loop for the same stage.
func (r *Runner) pauseForQAExhaustion(state domain.RunState) domain.RunState {
	out := state.Clone()
	out.EscalationState = domain.EscalationQAExhausted
	out.QAStatus = domain.QAStatusFailed
	out.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return out
}

func (r *Runner) publish(ctx context.Context, name string, stage domain.Stage, data map[string]any) {
	r.events.Publish(ctx, domain.PipelineEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Name:      name,
		Stage:     &stage,
		Data:      data,
	})
}

func runIDFromWorkspace(workspacePath string) string {
	return workspace.RunIDFromPath(workspacePath)
}
