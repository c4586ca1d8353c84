// Package stageconfig resolves the on-disk paths and QA gate metadata each
// pipeline stage needs: the stage's step-definition file, its agent
// persona file, and (for QA-gated stages) the gate name and criteria text
// the reflection loop evaluates artifacts against.
package stageconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/reelforge/pipeline/pkg/domain"
)

type stageMeta struct {
	num      int
	slug     string
	agentDef string
	gate     string // empty for non-QA-gated stages
}

// stageTable mirrors the CLI runner's ALL_STAGES tuple
// (stage, step_file, agent_definition, gate_name), extended with
// veo3_await and delivery, which the original's interactive CLI runner
// skips ("delivery skipped — no Telegram") but the always-on consumer
// loop this package serves must still resolve agent definitions for.
var stageTable = map[domain.Stage]stageMeta{
	domain.StageRouter:          {1, "router", "router", "router"},
	domain.StageResearch:        {2, "research", "research", "research"},
	domain.StageTranscript:      {3, "transcript", "transcript", "transcript"},
	domain.StageContent:         {4, "content", "content-creator", "content"},
	domain.StageLayoutDetective: {5, "layout-detective", "layout-detective", "layout"},
	domain.StageFFmpegEngineer:  {6, "ffmpeg-engineer", "ffmpeg-engineer", "ffmpeg"},
	domain.StageVeo3Await:       {7, "veo3-await", "veo3-await", ""},
	domain.StageAssembly:        {8, "assembly", "qa", "assembly"},
	domain.StageDelivery:        {9, "delivery", "delivery", ""},
}

// Resolver implements consumer.StageConfig over a directory of BMAD-style
// workflow definitions. The layout follows the original runner's file
// naming directly: stage-NN-<slug>.md step files, a personas/ directory
// of agent definitions, and a gates/ directory of gate criteria text, one
// file per gate name.
type Resolver struct {
	workflowsDir string

	mu       sync.Mutex
	criteria map[string]string
}

// New constructs a Resolver rooted at workflowsDir.
func New(workflowsDir string) *Resolver {
	return &Resolver{workflowsDir: workflowsDir, criteria: make(map[string]string)}
}

// DescriptionPath returns the stage's step-definition file.
func (r *Resolver) DescriptionPath(stage domain.Stage) string {
	meta, ok := stageTable[stage]
	if !ok {
		return ""
	}
	return filepath.Join(r.workflowsDir, fmt.Sprintf("stage-%02d-%s.md", meta.num, meta.slug))
}

// PersonaPath returns the agent persona file the stage runs under.
func (r *Resolver) PersonaPath(stage domain.Stage) string {
	meta, ok := stageTable[stage]
	if !ok {
		return ""
	}
	return filepath.Join(r.workflowsDir, "personas", meta.agentDef+".md")
}

// Gate returns the QA gate name for stage and its criteria text, read
// from gates/<gate>.md. Called only for QA-gated stages (see
// domain.NonQAGatedStages); stages with no gate return an empty name and
// criteria. A missing criteria file is not an error — the reflection loop
// still runs with an empty criteria string, same as a stage whose
// gate_criteria was never populated in the original's CLI context.
func (r *Resolver) Gate(stage domain.Stage) (gate, criteria string) {
	meta, ok := stageTable[stage]
	if !ok || meta.gate == "" {
		return "", ""
	}
	return meta.gate, r.gateCriteria(meta.gate)
}

func (r *Resolver) gateCriteria(gate string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if criteria, ok := r.criteria[gate]; ok {
		return criteria
	}

	data, err := os.ReadFile(filepath.Join(r.workflowsDir, "gates", gate+".md"))
	criteria := ""
	if err == nil {
		criteria = string(data)
	}
	r.criteria[gate] = criteria
	return criteria
}
