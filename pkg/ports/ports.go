// Package ports declares the hexagonal-architecture boundaries between the
// pipeline core and everything external to it: agent subprocesses, AI
// model dispatch, user messaging, the queue, video tooling, state
// persistence, file delivery, and the layout knowledge base. Each
// interface is deliberately narrow — one capability per port — so a
// component can depend on only the slice of the outside world it needs.
package ports

import (
	"context"

	"github.com/reelforge/pipeline/pkg/domain"
)

// AgentExecutor runs one BMAD-style agent subprocess and returns its result.
type AgentExecutor interface {
	Execute(ctx context.Context, request domain.AgentRequest) (domain.AgentResult, error)
}

// ModelDispatcher routes a prompt to a named AI model role (e.g. the QA
// evaluator) and returns its raw text response.
type ModelDispatcher interface {
	Dispatch(ctx context.Context, role, prompt, model string) (string, error)
}

// Messenger communicates with the operator through the chat surface
// (questions during escalation, progress notifications, file delivery).
type Messenger interface {
	AskUser(ctx context.Context, question string) (string, error)
	NotifyUser(ctx context.Context, message string) error
	SendFile(ctx context.Context, path, caption string) error
}

// Queue enqueues pipeline requests and reports queue depth.
type Queue interface {
	Enqueue(item domain.QueueItem) (string, error)
	PendingCount() (int, error)
	ProcessingCount() (int, error)
}

// StateStore persists and retrieves RunState checkpoints.
type StateStore interface {
	Save(state domain.RunState) error
	Load(runID string) (domain.RunState, error)
	ListIncomplete() ([]domain.RunState, error)
}

// ResourceMonitor reports host resource pressure so the consumer loop can
// throttle before starting new work.
type ResourceMonitor interface {
	Snapshot(ctx context.Context) (domain.ResourceSnapshot, error)
}

// Watchdog integrates with an external supervisor's liveness checks
// (systemd's sd_notify protocol in this implementation).
type Watchdog interface {
	Ready() error
	Heartbeat() error
	Stopping() error
	// Interval returns how often Heartbeat must be called to avoid being
	// killed, or zero if no watchdog is configured.
	Interval() (interval int64, enabled bool)
}

// VideoProcessor handles FFmpeg-driven frame extraction and crop/encode.
type VideoProcessor interface {
	ExtractFrames(ctx context.Context, video string, timestamps []float64) ([]string, error)
	CropAndEncode(ctx context.Context, video string, segments []domain.SegmentLayout, output string) (string, error)
}

// VideoDownloader fetches source video content and metadata via yt-dlp.
type VideoDownloader interface {
	DownloadMetadata(ctx context.Context, url string) (domain.VideoMetadata, error)
	DownloadSubtitles(ctx context.Context, url, output string) (string, error)
	DownloadVideo(ctx context.Context, url, output string) (string, error)
}

// FileDelivery uploads a finished artifact to external storage for
// delivery to the operator (e.g. when it exceeds the chat surface's
// inline size limit).
type FileDelivery interface {
	Upload(ctx context.Context, path string) (string, error)
}

// KnowledgeBase is CRUD access to the persisted layout crop-strategy store.
type KnowledgeBase interface {
	GetStrategy(ctx context.Context, layoutName string) (domain.CropRegion, bool, error)
	SaveStrategy(ctx context.Context, layoutName string, region domain.CropRegion) error
	ListStrategies(ctx context.Context) (map[string]domain.CropRegion, error)
}
