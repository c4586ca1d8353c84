// Package reflection drives the Generator-Critic QA loop: an agent
// produces artifacts, a QA model critiques them against gate criteria,
// and on REWORK the agent retries with the critique's prescriptive fixes
// folded into its attempt history. After fsm.MaxQAAttempts, best-of-three
// selection picks the highest-scoring attempt and signals escalation if
// even the best score falls below the minimum pass threshold.
package reflection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/fsm"
	"github.com/reelforge/pipeline/pkg/ports"
)

// MinScoreThreshold is the score below which a best-of-three selection
// still triggers escalation, even though QA never returned a hard FAIL.
const MinScoreThreshold = 40

// QARole identifies the model role the QA evaluator prompt is dispatched to.
const QARole = "qa_evaluator"

// Loop evaluates agent output against QA gate criteria, retrying on
// rework up to fsm.MaxQAAttempts times before falling back to best-of-N
// selection.
type Loop struct {
	agent             ports.AgentExecutor
	model             ports.ModelDispatcher
	minScoreThreshold int
}

// New constructs a Loop with the default minimum pass score.
func New(agent ports.AgentExecutor, model ports.ModelDispatcher) *Loop {
	return &Loop{agent: agent, model: model, minScoreThreshold: MinScoreThreshold}
}

// WithMinScoreThreshold overrides the default minimum pass score.
func (l *Loop) WithMinScoreThreshold(threshold int) *Loop {
	l.minScoreThreshold = threshold
	return l
}

type attempt struct {
	critique domain.QACritique
	result   domain.AgentResult
}

// Run executes the full reflection loop for one stage: agent execution,
// QA evaluation, and rework retries, returning the best result found.
func (l *Loop) Run(ctx context.Context, request domain.AgentRequest, gate, gateCriteria string) (domain.ReflectionResult, error) {
	var attempts []attempt
	currentRequest := request

	for attemptNum := 1; attemptNum <= fsm.MaxQAAttempts; attemptNum++ {
		result, err := l.agent.Execute(ctx, currentRequest)
		if err != nil {
			return domain.ReflectionResult{}, pipelineerrors.NewAgentExecutionError(string(request.Stage), err)
		}

		critique, err := l.Evaluate(ctx, result.Artifacts, gate, gateCriteria, attemptNum)
		if err != nil {
			return domain.ReflectionResult{}, err
		}
		attempts = append(attempts, attempt{critique: critique, result: result})

		slog.Info("qa gate attempt evaluated",
			"gate", gate, "attempt", attemptNum, "decision", critique.Decision, "score", critique.Score)

		if critique.Decision == domain.QADecisionPass {
			return domain.NewReflectionResult(critique, result.Artifacts, attemptNum, false)
		}

		if critique.Decision == domain.QADecisionFail {
			break
		}

		if attemptNum < fsm.MaxQAAttempts {
			feedback := map[string]string{
				"attempt":            strconv.Itoa(attemptNum),
				"decision":           string(critique.Decision),
				"score":              strconv.Itoa(critique.Score),
				"prescriptive_fixes": strings.Join(critique.PrescriptiveFixes, "; "),
				"blockers":           joinBlockerDescriptions(critique.Blockers),
			}
			currentRequest = domain.AgentRequest{
				Stage:                request.Stage,
				StageDescriptionPath: request.StageDescriptionPath,
				AgentPersonaPath:     request.AgentPersonaPath,
				PriorArtifacts:       request.PriorArtifacts,
				ElicitationContext:   request.ElicitationContext,
				WorkspacePath:        request.WorkspacePath,
				AttemptHistory:       append(append([]map[string]string(nil), request.AttemptHistory...), feedback),
			}
		}
	}

	best, err := selectBest(attempts)
	if err != nil {
		return domain.ReflectionResult{}, err
	}

	escalationNeeded := best.critique.Score < l.minScoreThreshold

	slog.Info("qa gate best-of-n selected",
		"gate", gate, "n", len(attempts), "score", best.critique.Score, "escalation", escalationNeeded)

	return domain.NewReflectionResult(best.critique, best.result.Artifacts, len(attempts), escalationNeeded)
}

// Evaluate dispatches artifacts to the QA model role and parses its
// response into a QACritique. Returns a *pipelineerrors.QAError if the
// response cannot be parsed.
func (l *Loop) Evaluate(ctx context.Context, artifacts []string, gate, gateCriteria string, attemptNum int) (domain.QACritique, error) {
	var artifactList strings.Builder
	for _, p := range artifacts {
		artifactList.WriteString("- ")
		artifactList.WriteString(p)
		artifactList.WriteByte('\n')
	}

	prompt := fmt.Sprintf(
		"## QA Gate Evaluation: %s\n\n### Gate Criteria\n\n%s\n\n### Artifacts to Evaluate\n\n%s\n### Attempt: %d\n\n"+
			"Evaluate the artifacts against the gate criteria. Respond with ONLY a JSON object matching this exact schema:\n"+
			`{"decision": "PASS|REWORK|FAIL", "score": 0-100, "gate": "<gate_name>", `+
			`"attempt": <int>, "blockers": [{"severity": "...", "description": "..."}], `+
			`"prescriptive_fixes": ["exact fix instruction"], "confidence": 0.0-1.0}`,
		gate, gateCriteria, artifactList.String(), attemptNum,
	)

	raw, err := l.model.Dispatch(ctx, QARole, prompt, "")
	if err != nil {
		return domain.QACritique{}, pipelineerrors.NewQAError(gate, err)
	}

	return parseCritique(raw, gate, attemptNum)
}

func joinBlockerDescriptions(blockers []map[string]string) string {
	parts := make([]string, 0, len(blockers))
	for _, b := range blockers {
		parts = append(parts, b["description"])
	}
	return strings.Join(parts, "; ")
}

// selectBest returns the highest-scoring attempt. Ties keep the
// first-occurring attempt, matching Python's max() tie-break semantics.
func selectBest(attempts []attempt) (attempt, error) {
	if len(attempts) == 0 {
		return attempt{}, pipelineerrors.NewQAError("", fmt.Errorf("no QA attempts to select from"))
	}
	best := attempts[0]
	for _, a := range attempts[1:] {
		if a.critique.Score > best.critique.Score {
			best = a
		}
	}
	return best, nil
}

type critiqueDoc struct {
	Decision          string              `json:"decision"`
	Score             int                 `json:"score"`
	Gate              string              `json:"gate"`
	Attempt           int                 `json:"attempt"`
	Blockers          []map[string]string `json:"blockers"`
	PrescriptiveFixes []string            `json:"prescriptive_fixes"`
	Confidence        float64             `json:"confidence"`
}

// parseCritique parses a raw model response into a QACritique, tolerating
// a markdown code fence wrapped around the JSON body (models reliably
// ignore "respond with ONLY JSON" instructions and fence it anyway).
func parseCritique(raw, gate string, attemptNum int) (domain.QACritique, error) {
	cleaned := stripCodeFence(raw)

	var doc critiqueDoc
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return domain.QACritique{}, pipelineerrors.NewQAError(gate, fmt.Errorf("QA response is not valid JSON: %w", err))
	}

	decision, err := parseDecision(doc.Decision)
	if err != nil {
		return domain.QACritique{}, pipelineerrors.NewQAError(gate, err)
	}

	critique, err := domain.NewQACritique(decision, doc.Score, gate, attemptNum, doc.Blockers, doc.PrescriptiveFixes, doc.Confidence)
	if err != nil {
		return domain.QACritique{}, pipelineerrors.NewQAError(gate, err)
	}
	return critique, nil
}

func stripCodeFence(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	lines := strings.Split(cleaned, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func parseDecision(raw string) (domain.QADecision, error) {
	switch domain.QADecision(raw) {
	case domain.QADecisionPass:
		return domain.QADecisionPass, nil
	case domain.QADecisionRework:
		return domain.QADecisionRework, nil
	case domain.QADecisionFail:
		return domain.QADecisionFail, nil
	default:
		return "", fmt.Errorf("invalid or missing 'decision' in QA response: %q", raw)
	}
}
