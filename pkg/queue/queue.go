// Package queue is a file-backed FIFO queue: inbox/ holds pending items as
// timestamp-prefixed JSON files, processing/ holds claimed-but-unfinished
// items, and completed/ holds finished ones. Claiming a file takes an
// advisory POSIX lock first so two consumer processes never double-claim
// the same item.
package queue

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/domain"
)

const (
	inboxDirName      = "inbox"
	processingDirName = "processing"
	completedDirName  = "completed"
	jsonExt           = ".json"
	lockExt           = ".lock"
)

// Queue is a FIFO queue backed by three sibling directories under baseDir.
type Queue struct {
	baseDir    string
	inbox      string
	processing string
	completed  string
}

// New constructs a Queue rooted at baseDir. Call EnsureDirs before first use.
func New(baseDir string) *Queue {
	return &Queue{
		baseDir:    baseDir,
		inbox:      filepath.Join(baseDir, inboxDirName),
		processing: filepath.Join(baseDir, processingDirName),
		completed:  filepath.Join(baseDir, completedDirName),
	}
}

// EnsureDirs creates the inbox/processing/completed directories if absent.
func (q *Queue) EnsureDirs() error {
	for _, d := range []string{q.inbox, q.processing, q.completed} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return pipelineerrors.NewOSIOError("mkdir queue dir", err)
		}
	}
	return nil
}

type queueItemDoc struct {
	URL              string  `json:"url"`
	TelegramUpdateID int64   `json:"telegram_update_id"`
	QueuedAt         string  `json:"queued_at"`
	TopicFocus       *string `json:"topic_focus,omitempty"`
}

// Enqueue writes item to the inbox as a timestamp-prefixed JSON file and
// returns the path written.
func (q *Queue) Enqueue(item domain.QueueItem) (string, error) {
	if err := q.EnsureDirs(); err != nil {
		return "", err
	}

	ts := item.QueuedAt.UTC().Format("20060102-150405.000000")
	ts = strings.Replace(ts, ".", "-", 1)
	shortID := uuid.New().String()[:8]
	name := ts + "-" + shortID + jsonExt
	path := filepath.Join(q.inbox, name)

	doc := queueItemDoc{
		URL:              item.URL,
		TelegramUpdateID: item.TelegramUpdateID,
		QueuedAt:         item.QueuedAt.UTC().Format(time.RFC3339Nano),
	}
	if item.TopicFocus != "" {
		doc.TopicFocus = &item.TopicFocus
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", pipelineerrors.NewValidationError("queue_item", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", pipelineerrors.NewOSIOError("write queue item", err)
	}

	slog.Info("enqueued item", "file", name)
	return path, nil
}

// ClaimedItem is a queue item that has been moved into processing/.
type ClaimedItem struct {
	Item domain.QueueItem
	Path string
}

// ClaimNext claims the oldest inbox item by flock-ing a sidecar .lock file
// and moving the candidate into processing/. It returns
// pipelineerrors.ErrNothingToDo if the inbox has no claimable item.
// Unparseable or vanished candidates are logged and skipped; ClaimNext
// keeps trying later candidates rather than failing outright.
func (q *Queue) ClaimNext() (ClaimedItem, error) {
	if err := q.EnsureDirs(); err != nil {
		return ClaimedItem{}, err
	}

	entries, err := os.ReadDir(q.inbox)
	if err != nil {
		return ClaimedItem{}, pipelineerrors.NewOSIOError("list inbox", err)
	}

	candidates := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), jsonExt) {
			candidates = append(candidates, e.Name())
		}
	}
	sort.Strings(candidates)

	for _, name := range candidates {
		claimed, err := q.tryClaim(name)
		if err != nil {
			slog.Warn("skipping invalid queue item", "file", name, "error", err)
			continue
		}
		return claimed, nil
	}

	return ClaimedItem{}, pipelineerrors.ErrNothingToDo
}

func (q *Queue) tryClaim(name string) (ClaimedItem, error) {
	inboxPath := filepath.Join(q.inbox, name)
	lockPath := strings.TrimSuffix(inboxPath, jsonExt) + lockExt

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return ClaimedItem{}, err
	}
	defer func() {
		_ = lockFile.Close()
		_ = os.Remove(lockPath)
	}()

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return ClaimedItem{}, errors.New("could not acquire lock on " + inboxPath)
	}

	data, err := os.ReadFile(inboxPath)
	if err != nil {
		return ClaimedItem{}, err
	}

	var doc queueItemDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return ClaimedItem{}, err
	}

	queuedAt, err := time.Parse(time.RFC3339Nano, doc.QueuedAt)
	if err != nil {
		return ClaimedItem{}, err
	}

	item := domain.QueueItem{
		URL:              doc.URL,
		TelegramUpdateID: doc.TelegramUpdateID,
		QueuedAt:         queuedAt,
	}
	if doc.TopicFocus != nil {
		item.TopicFocus = *doc.TopicFocus
	}

	dest := filepath.Join(q.processing, name)
	if err := os.Rename(inboxPath, dest); err != nil {
		return ClaimedItem{}, err
	}

	slog.Info("claimed queue item", "file", name)
	return ClaimedItem{Item: item, Path: dest}, nil
}

// Complete moves a processing item to completed/ and returns the new path.
func (q *Queue) Complete(processingPath string) (string, error) {
	if err := q.EnsureDirs(); err != nil {
		return "", err
	}
	dest := filepath.Join(q.completed, filepath.Base(processingPath))
	if err := os.Rename(processingPath, dest); err != nil {
		return "", pipelineerrors.NewOSIOError("complete queue item", err)
	}
	slog.Info("completed queue item", "file", filepath.Base(processingPath))
	return dest, nil
}

// Fail moves a processing item back to the inbox so it is retried on the
// next claim pass. This has no equivalent in the reference queue_consumer
// (which has no failure path); the consumer loop calls it when a claimed
// item's workspace, run state, or run fails, so the item is returned to
// the queue rather than silently dropped.
func (q *Queue) Fail(processingPath string) (string, error) {
	if err := q.EnsureDirs(); err != nil {
		return "", err
	}
	dest := filepath.Join(q.inbox, filepath.Base(processingPath))
	if err := os.Rename(processingPath, dest); err != nil {
		return "", pipelineerrors.NewOSIOError("requeue failed item", err)
	}
	slog.Warn("requeued failed item", "file", filepath.Base(processingPath))
	return dest, nil
}

// PendingCount returns the number of items currently in the inbox.
func (q *Queue) PendingCount() (int, error) {
	return q.countJSONFiles(q.inbox)
}

// ProcessingCount returns the number of items currently being processed.
func (q *Queue) ProcessingCount() (int, error) {
	return q.countJSONFiles(q.processing)
}

func (q *Queue) countJSONFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, pipelineerrors.NewOSIOError("count queue dir", err)
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), jsonExt) {
			n++
		}
	}
	return n, nil
}
