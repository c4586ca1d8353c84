package stageconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipeline/pkg/domain"
)

func TestDescriptionPath_UsesStageNumberAndSlug(t *testing.T) {
	r := New("/workflows")
	assert.Equal(t, "/workflows/stage-04-content.md", r.DescriptionPath(domain.StageContent))
}

func TestPersonaPath_UsesAgentDefinition(t *testing.T) {
	r := New("/workflows")
	assert.Equal(t, "/workflows/personas/layout-detective.md", r.PersonaPath(domain.StageLayoutDetective))
}

func TestGate_NonQAGatedStageReturnsEmpty(t *testing.T) {
	r := New("/workflows")
	gate, criteria := r.Gate(domain.StageVeo3Await)
	assert.Empty(t, gate)
	assert.Empty(t, criteria)
}

func TestGate_ReadsCriteriaFileForGatedStage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gates", "assembly.md"), []byte("no dead air between cuts"), 0o644))

	r := New(dir)
	gate, criteria := r.Gate(domain.StageAssembly)

	assert.Equal(t, "assembly", gate)
	assert.Equal(t, "no dead air between cuts", criteria)
}

func TestGate_MissingCriteriaFileIsNotAnError(t *testing.T) {
	r := New(t.TempDir())
	gate, criteria := r.Gate(domain.StageResearch)

	assert.Equal(t, "research", gate)
	assert.Empty(t, criteria)
}

func TestGate_CachesCriteriaAfterFirstRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "gates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gates", "router.md"), []byte("v1"), 0o644))

	r := New(dir)
	_, first := r.Gate(domain.StageRouter)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gates", "router.md"), []byte("v2"), 0o644))
	_, second := r.Gate(domain.StageRouter)

	assert.Equal(t, "v1", first)
	assert.Equal(t, first, second)
}

func TestDescriptionPath_UnknownStageReturnsEmpty(t *testing.T) {
	r := New("/workflows")
	assert.Empty(t, r.DescriptionPath(domain.StageCompleted))
}
