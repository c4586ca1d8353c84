// Package statestore persists domain.RunState as YAML front-matter inside a
// per-run run.md file, with atomic temp-file-then-rename writes so a crash
// mid-write never leaves a half-written checkpoint behind.
package statestore

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/domain"
)

const frontmatterDelimiter = "---"

type frontmatterDoc struct {
	RunID                string   `yaml:"run_id"`
	YouTubeURL           string   `yaml:"youtube_url"`
	CurrentStage         string   `yaml:"current_stage"`
	CurrentAttempt       int      `yaml:"current_attempt"`
	QAStatus             string   `yaml:"qa_status"`
	StagesCompleted      []string `yaml:"stages_completed"`
	EscalationState      string   `yaml:"escalation_state"`
	BestOfThreeOverrides []string `yaml:"best_of_three_overrides"`
	CreatedAt            string   `yaml:"created_at"`
	UpdatedAt            string   `yaml:"updated_at"`
	WorkspacePath        string   `yaml:"workspace_path"`
}

// Serialize renders state as a YAML front-matter document: a leading and
// trailing "---" delimiter around the YAML body, matching the run.md
// format the workspace manager expects on disk.
func Serialize(state domain.RunState) (string, error) {
	doc := frontmatterDoc{
		RunID:                state.RunID,
		YouTubeURL:           state.YouTubeURL,
		CurrentStage:         string(state.CurrentStage),
		CurrentAttempt:       state.CurrentAttempt,
		QAStatus:             string(state.QAStatus),
		StagesCompleted:      state.StagesCompleted,
		EscalationState:      string(state.EscalationState),
		BestOfThreeOverrides: state.BestOfThreeOverrides,
		CreatedAt:            state.CreatedAt,
		UpdatedAt:            state.UpdatedAt,
		WorkspacePath:        state.WorkspacePath,
	}

	body, err := yaml.Marshal(doc)
	if err != nil {
		return "", pipelineerrors.NewValidationError("run_state", err)
	}

	var sb strings.Builder
	sb.WriteString(frontmatterDelimiter)
	sb.WriteByte('\n')
	sb.Write(body)
	sb.WriteString(frontmatterDelimiter)
	sb.WriteByte('\n')
	return sb.String(), nil
}

// Deserialize parses a run.md document's front-matter back into a RunState.
func Deserialize(content string) (domain.RunState, error) {
	if !strings.HasPrefix(content, frontmatterDelimiter) {
		return domain.RunState{}, pipelineerrors.NewValidationError(
			"run_state", fmt.Errorf("missing YAML front-matter delimiters (---)"))
	}

	parts := strings.SplitN(content, frontmatterDelimiter, 3)
	if len(parts) < 3 {
		return domain.RunState{}, pipelineerrors.NewValidationError(
			"run_state", fmt.Errorf("missing YAML front-matter delimiters (---)"))
	}

	var doc frontmatterDoc
	if err := yaml.Unmarshal([]byte(parts[1]), &doc); err != nil {
		return domain.RunState{}, pipelineerrors.NewValidationError("run_state", err)
	}

	if doc.RunID == "" {
		return domain.RunState{}, pipelineerrors.NewValidationError(
			"run_state", fmt.Errorf("missing required key: run_id"))
	}
	if doc.CurrentStage == "" {
		return domain.RunState{}, pipelineerrors.NewValidationError(
			"run_state", fmt.Errorf("missing required key: current_stage"))
	}

	return domain.RunState{
		RunID:                doc.RunID,
		YouTubeURL:           doc.YouTubeURL,
		CurrentStage:         domain.Stage(doc.CurrentStage),
		CurrentAttempt:       doc.CurrentAttempt,
		QAStatus:             domain.QAStatus(doc.QAStatus),
		StagesCompleted:      doc.StagesCompleted,
		EscalationState:      domain.EscalationState(doc.EscalationState),
		BestOfThreeOverrides: doc.BestOfThreeOverrides,
		CreatedAt:            doc.CreatedAt,
		UpdatedAt:            doc.UpdatedAt,
		WorkspacePath:        doc.WorkspacePath,
	}, nil
}
