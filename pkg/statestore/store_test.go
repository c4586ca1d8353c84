package statestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/domain"
)

func sampleState(runID string) domain.RunState {
	return domain.RunState{
		RunID:           runID,
		YouTubeURL:      "https://youtube.com/watch?v=abc123",
		CurrentStage:    domain.StageResearch,
		CurrentAttempt:  1,
		QAStatus:        domain.QAStatusPending,
		StagesCompleted: []string{string(domain.StageRouter)},
		EscalationState: domain.EscalationNone,
		CreatedAt:       "2026-07-31T00:00:00Z",
		UpdatedAt:       "2026-07-31T00:00:00Z",
		WorkspacePath:   "/tmp/runs/" + runID,
	}
}

func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	state := sampleState("20260731-000000-ab12cd")

	text, err := Serialize(state)
	require.NoError(t, err)
	assert.Contains(t, text, "---\n")

	got, err := Deserialize(text)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestDeserialize_MissingDelimiterFails(t *testing.T) {
	_, err := Deserialize("run_id: foo\n")
	require.Error(t, err)
}

func TestDeserialize_MissingRunIDFails(t *testing.T) {
	_, err := Deserialize("---\ncurrent_stage: router\n---\n")
	require.Error(t, err)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	state := sampleState("run-a")

	require.NoError(t, store.Save(state))

	got, err := store.Load("run-a")
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestStore_LoadMissingReturnsNotFound(t *testing.T) {
	store := New(t.TempDir())

	_, err := store.Load("does-not-exist")

	assert.ErrorIs(t, err, pipelineerrors.ErrNotFound)
}

func TestStore_ListIncompleteSkipsTerminalAndCorrupted(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	active := sampleState("run-active")
	done := sampleState("run-done")
	done.CurrentStage = domain.StageCompleted

	require.NoError(t, store.Save(active))
	require.NoError(t, store.Save(done))

	corruptDir := filepath.Join(dir, "run-corrupt")
	require.NoError(t, os.MkdirAll(corruptDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corruptDir, runFileName), []byte("not yaml front-matter"), 0o644))

	got, err := store.ListIncomplete()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "run-active", got[0].RunID)
}
