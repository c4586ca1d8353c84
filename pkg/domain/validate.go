package domain

import (
	"fmt"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
)

// The New* constructors below mirror the original implementation's
// __post_init__ validation: every domain value type that carries an
// invariant (scores, durations, non-empty identifiers) is validated once
// at construction time rather than on every read.

// NewQACritique validates and constructs a QACritique.
func NewQACritique(decision QADecision, score int, gate string, attempt int, blockers []map[string]string, fixes []string, confidence float64) (QACritique, error) {
	if score < 0 || score > 100 {
		return QACritique{}, pipelineerrors.NewValidationError("qa_critique", fmt.Errorf("score must be 0-100, got %d", score))
	}
	if confidence < 0.0 || confidence > 1.0 {
		return QACritique{}, pipelineerrors.NewValidationError("qa_critique", fmt.Errorf("confidence must be 0.0-1.0, got %f", confidence))
	}
	if attempt < 1 {
		return QACritique{}, pipelineerrors.NewValidationError("qa_critique", fmt.Errorf("attempt must be >= 1, got %d", attempt))
	}
	return QACritique{
		Decision:          decision,
		Score:             score,
		Gate:              gate,
		Attempt:           attempt,
		Blockers:          blockers,
		PrescriptiveFixes: fixes,
		Confidence:        confidence,
	}, nil
}

// NewAgentResult validates and constructs an AgentResult.
func NewAgentResult(status string, artifacts []string, sessionID string, durationSeconds float64) (AgentResult, error) {
	if durationSeconds < 0 {
		return AgentResult{}, pipelineerrors.NewValidationError("agent_result", fmt.Errorf("duration_seconds must be non-negative, got %f", durationSeconds))
	}
	return AgentResult{
		Status:          status,
		Artifacts:       artifacts,
		SessionID:       sessionID,
		DurationSeconds: durationSeconds,
	}, nil
}

// NewCropRegion validates and constructs a CropRegion.
func NewCropRegion(x, y, width, height int, layoutName string) (CropRegion, error) {
	if x < 0 || y < 0 {
		return CropRegion{}, pipelineerrors.NewValidationError("crop_region", fmt.Errorf("x and y must be non-negative, got (%d, %d)", x, y))
	}
	if width <= 0 || height <= 0 {
		return CropRegion{}, pipelineerrors.NewValidationError("crop_region", fmt.Errorf("width and height must be positive, got (%d, %d)", width, height))
	}
	return CropRegion{X: x, Y: y, Width: width, Height: height, LayoutName: layoutName}, nil
}

// NewVideoMetadata validates and constructs VideoMetadata.
func NewVideoMetadata(title string, durationSeconds float64, channel, publishDate, description, url string) (VideoMetadata, error) {
	if durationSeconds <= 0 {
		return VideoMetadata{}, pipelineerrors.NewValidationError("video_metadata", fmt.Errorf("duration_seconds must be positive, got %f", durationSeconds))
	}
	if url == "" {
		return VideoMetadata{}, pipelineerrors.NewValidationError("video_metadata", fmt.Errorf("url must not be empty"))
	}
	return VideoMetadata{
		Title:           title,
		DurationSeconds: durationSeconds,
		Channel:         channel,
		PublishDate:     publishDate,
		Description:     description,
		URL:             url,
	}, nil
}

// NewQueueItem validates and constructs a QueueItem.
func NewQueueItem(item QueueItem) (QueueItem, error) {
	if item.URL == "" {
		return QueueItem{}, pipelineerrors.NewValidationError("queue_item", fmt.Errorf("url must not be empty"))
	}
	return item, nil
}

// NewRunState validates and constructs a RunState.
func NewRunState(state RunState) (RunState, error) {
	if state.RunID == "" {
		return RunState{}, pipelineerrors.NewValidationError("run_state", fmt.Errorf("run_id must not be empty"))
	}
	if state.YouTubeURL == "" {
		return RunState{}, pipelineerrors.NewValidationError("run_state", fmt.Errorf("youtube_url must not be empty"))
	}
	if state.CurrentAttempt < 1 {
		return RunState{}, pipelineerrors.NewValidationError("run_state", fmt.Errorf("current_attempt must be >= 1, got %d", state.CurrentAttempt))
	}
	return state, nil
}

// NewReflectionResult validates and constructs a ReflectionResult.
func NewReflectionResult(best QACritique, artifacts []string, attempts int, escalationNeeded bool) (ReflectionResult, error) {
	if attempts < 1 {
		return ReflectionResult{}, pipelineerrors.NewValidationError("reflection_result", fmt.Errorf("attempts must be >= 1, got %d", attempts))
	}
	return ReflectionResult{
		BestCritique:     best,
		Artifacts:        artifacts,
		Attempts:         attempts,
		EscalationNeeded: escalationNeeded,
	}, nil
}

// NewMomentSelection validates and constructs a MomentSelection. Segment
// duration is constrained to 30-120 seconds, matching the short-form
// output format the delivery stage produces.
func NewMomentSelection(startSeconds, endSeconds float64, transcriptText, rationale string, topicMatchScore float64) (MomentSelection, error) {
	if startSeconds < 0 {
		return MomentSelection{}, pipelineerrors.NewValidationError("moment_selection", fmt.Errorf("start_seconds must be non-negative, got %f", startSeconds))
	}
	if endSeconds <= startSeconds {
		return MomentSelection{}, pipelineerrors.NewValidationError("moment_selection", fmt.Errorf("end_seconds (%f) must be > start_seconds (%f)", endSeconds, startSeconds))
	}
	duration := endSeconds - startSeconds
	if duration < 30.0 || duration > 120.0 {
		return MomentSelection{}, pipelineerrors.NewValidationError("moment_selection", fmt.Errorf("segment duration must be 30-120s, got %.1fs", duration))
	}
	if rationale == "" {
		return MomentSelection{}, pipelineerrors.NewValidationError("moment_selection", fmt.Errorf("rationale must not be empty"))
	}
	if topicMatchScore < 0.0 || topicMatchScore > 1.0 {
		return MomentSelection{}, pipelineerrors.NewValidationError("moment_selection", fmt.Errorf("topic_match_score must be 0.0-1.0, got %f", topicMatchScore))
	}
	return MomentSelection{
		StartSeconds:    startSeconds,
		EndSeconds:      endSeconds,
		TranscriptText:  transcriptText,
		Rationale:       rationale,
		TopicMatchScore: topicMatchScore,
	}, nil
}

// NewLayoutClassification validates and constructs a LayoutClassification.
func NewLayoutClassification(timestamp float64, layoutName string, confidence float64) (LayoutClassification, error) {
	if timestamp < 0 {
		return LayoutClassification{}, pipelineerrors.NewValidationError("layout_classification", fmt.Errorf("timestamp must be non-negative, got %f", timestamp))
	}
	if layoutName == "" {
		return LayoutClassification{}, pipelineerrors.NewValidationError("layout_classification", fmt.Errorf("layout_name must not be empty"))
	}
	if confidence < 0.0 || confidence > 1.0 {
		return LayoutClassification{}, pipelineerrors.NewValidationError("layout_classification", fmt.Errorf("confidence must be 0.0-1.0, got %f", confidence))
	}
	return LayoutClassification{Timestamp: timestamp, LayoutName: layoutName, Confidence: confidence}, nil
}

// NewSegmentLayout validates and constructs a SegmentLayout.
func NewSegmentLayout(startSeconds, endSeconds float64, layoutName string, cropRegion *CropRegion) (SegmentLayout, error) {
	if startSeconds < 0 {
		return SegmentLayout{}, pipelineerrors.NewValidationError("segment_layout", fmt.Errorf("start_seconds must be non-negative, got %f", startSeconds))
	}
	if endSeconds <= startSeconds {
		return SegmentLayout{}, pipelineerrors.NewValidationError("segment_layout", fmt.Errorf("end_seconds (%f) must be > start_seconds (%f)", endSeconds, startSeconds))
	}
	if layoutName == "" {
		return SegmentLayout{}, pipelineerrors.NewValidationError("segment_layout", fmt.Errorf("layout_name must not be empty"))
	}
	return SegmentLayout{StartSeconds: startSeconds, EndSeconds: endSeconds, LayoutName: layoutName, CropRegion: cropRegion}, nil
}

// NewPipelineEvent validates and constructs a PipelineEvent.
func NewPipelineEvent(timestamp, name string, stage *Stage, data map[string]any) (PipelineEvent, error) {
	if name == "" {
		return PipelineEvent{}, pipelineerrors.NewValidationError("pipeline_event", fmt.Errorf("event_name must not be empty"))
	}
	return PipelineEvent{Timestamp: timestamp, Name: name, Stage: stage, Data: data}, nil
}
