package domain

import "time"

// RunState is the canonical per-run record, persisted by pkg/statestore as
// YAML front-matter in {workspace}/runs/{run_id}/run.md. A RunState is
// never mutated; every transition produces a new value (see pkg/fsm).
type RunState struct {
	RunID                string          `yaml:"run_id"`
	YouTubeURL           string          `yaml:"youtube_url"`
	CurrentStage         Stage           `yaml:"current_stage"`
	CurrentAttempt       int             `yaml:"current_attempt"`
	QAStatus             QAStatus        `yaml:"qa_status"`
	StagesCompleted      []string        `yaml:"stages_completed"`
	EscalationState      EscalationState `yaml:"escalation_state"`
	BestOfThreeOverrides []string        `yaml:"best_of_three_overrides"`
	CreatedAt            string          `yaml:"created_at"`
	UpdatedAt            string          `yaml:"updated_at"`
	WorkspacePath        string          `yaml:"workspace_path"`
}

// Clone returns a deep copy of s, so callers can build a new RunState by
// copying then overwriting fields without aliasing the slices.
func (s RunState) Clone() RunState {
	out := s
	out.StagesCompleted = append([]string(nil), s.StagesCompleted...)
	out.BestOfThreeOverrides = append([]string(nil), s.BestOfThreeOverrides...)
	return out
}

// QueueItem is one pipeline request waiting in the FIFO queue.
type QueueItem struct {
	URL              string    `json:"url"`
	TelegramUpdateID int64     `json:"telegram_update_id"`
	QueuedAt         time.Time `json:"queued_at"`
	TopicFocus       string    `json:"topic_focus,omitempty"`
}

// AgentRequest bundles everything an agent needs for one execution.
type AgentRequest struct {
	Stage                Stage
	StageDescriptionPath string
	AgentPersonaPath     string
	WorkspacePath        string
	PriorArtifacts       []string
	ElicitationContext   map[string]string
	AttemptHistory       []map[string]string
}

// AgentResult is the output from a completed agent execution.
type AgentResult struct {
	Status          string
	Artifacts       []string
	SessionID       string
	DurationSeconds float64
}

// QACritique is a structured QA gate evaluation result.
type QACritique struct {
	Decision          QADecision
	Score             int
	Gate              string
	Attempt           int
	Blockers          []map[string]string
	PrescriptiveFixes []string
	Confidence        float64
}

// ReflectionResult is the output of the reflection loop for one stage.
type ReflectionResult struct {
	BestCritique     QACritique
	Artifacts        []string
	Attempts         int
	EscalationNeeded bool
}

// PipelineEvent is a structured event published on the event bus.
type PipelineEvent struct {
	Timestamp string
	Name      string
	Stage     *Stage
	Data      map[string]any
}

// ResourceSnapshot is a point-in-time read of host resource usage,
// produced by the resource-monitor port (pkg/resourcemon).
type ResourceSnapshot struct {
	MemoryUsedBytes    uint64
	MemoryTotalBytes   uint64
	CPULoadPercent     float64
	TemperatureCelsius *float64 // optional: nil when no thermal sensor is available
}

// RecoveryPlan describes how to resume an interrupted run, computed by the
// crash recovery scanner (pkg/crashrecovery).
type RecoveryPlan struct {
	RunState          RunState
	ResumeFrom        Stage
	StagesRemaining   []Stage
	StagesAlreadyDone int
}

// RecoveryLevel is one level of the recovery chain (pkg/recovery), ordered
// from least to most disruptive.
type RecoveryLevel string

const (
	RecoveryLevelRetry    RecoveryLevel = "retry"
	RecoveryLevelFork     RecoveryLevel = "fork"
	RecoveryLevelFresh    RecoveryLevel = "fresh"
	RecoveryLevelEscalate RecoveryLevel = "escalate"
)

// RecoveryOrder is the fixed order the recovery chain walks.
var RecoveryOrder = []RecoveryLevel{
	RecoveryLevelRetry,
	RecoveryLevelFork,
	RecoveryLevelFresh,
	RecoveryLevelEscalate,
}

// RecoveryResult is the outcome of a recovery attempt.
type RecoveryResult struct {
	Success           bool
	Level             RecoveryLevel
	Result            *AgentResult
	EscalationMessage string
}

// CropRegion is a video crop rectangle for one layout strategy, persisted
// in the layout knowledge base.
type CropRegion struct {
	X          int
	Y          int
	Width      int
	Height     int
	LayoutName string
}

// VideoMetadata is the subset of yt-dlp's metadata the pipeline needs.
type VideoMetadata struct {
	Title           string
	DurationSeconds float64
	Channel         string
	PublishDate     string
	Description     string
	URL             string
}

// MomentSelection is one candidate transcript segment chosen by the
// content stage, with timing and rationale.
type MomentSelection struct {
	StartSeconds    float64
	EndSeconds      float64
	TranscriptText  string
	Rationale       string
	TopicMatchScore float64
}

// Duration returns the selected segment's length in seconds.
func (m MomentSelection) Duration() float64 {
	return m.EndSeconds - m.StartSeconds
}

// LayoutClassification is a single video frame's classified camera layout.
type LayoutClassification struct {
	Timestamp  float64
	LayoutName string
	Confidence float64
}

// SegmentLayout is a contiguous video segment with a classified layout and
// an optional resolved crop strategy.
type SegmentLayout struct {
	StartSeconds float64
	EndSeconds   float64
	LayoutName   string
	CropRegion   *CropRegion
}
