package agentexec

import (
	"context"
	"encoding/json"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipeline/internal/pipelineerrors"
	"github.com/reelforge/pipeline/pkg/domain"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses a /bin/sh script as a stand-in agent CLI")
	}
}

func TestExecute_ParsesSuccessfulAgentResult(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	e := New(Config{
		Command: "/bin/sh",
		Args:    []string{"-c", `cat > /dev/null; echo '{"status":"ok","artifacts":["draft.md"],"session_id":"s-1","duration_seconds":1.5}'`},
	})

	result, err := e.Execute(context.Background(), domain.AgentRequest{
		Stage:         domain.StageResearch,
		WorkspacePath: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, []string{"draft.md"}, result.Artifacts)
	assert.Equal(t, "s-1", result.SessionID)
	assert.Equal(t, 1.5, result.DurationSeconds)
}

func TestExecute_WrapsNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	e := New(Config{Command: "/bin/sh", Args: []string{"-c", "echo boom 1>&2; exit 1"}})

	_, err := e.Execute(context.Background(), domain.AgentRequest{
		Stage:         domain.StageRouter,
		WorkspacePath: t.TempDir(),
	})
	require.Error(t, err)
	var agentErr *pipelineerrors.AgentExecutionError
	require.ErrorAs(t, err, &agentErr)
	assert.Equal(t, string(domain.StageRouter), agentErr.Stage)
}

func TestExecute_WrapsUnparseableStdout(t *testing.T) {
	skipOnWindows(t)
	e := New(Config{Command: "/bin/sh", Args: []string{"-c", "echo 'not json'"}})

	_, err := e.Execute(context.Background(), domain.AgentRequest{
		Stage:         domain.StageContent,
		WorkspacePath: t.TempDir(),
	})
	require.Error(t, err)
	var agentErr *pipelineerrors.AgentExecutionError
	assert.ErrorAs(t, err, &agentErr)
}

func TestExecute_WrapsTimeout(t *testing.T) {
	skipOnWindows(t)
	e := New(Config{
		Command: "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Timeout: 10 * time.Millisecond,
	})

	_, err := e.Execute(context.Background(), domain.AgentRequest{
		Stage:         domain.StageAssembly,
		WorkspacePath: t.TempDir(),
	})
	require.Error(t, err)
	var agentErr *pipelineerrors.AgentExecutionError
	require.ErrorAs(t, err, &agentErr)
}

func TestExecute_SendsRequestJSONOnStdin(t *testing.T) {
	skipOnWindows(t)
	e := New(Config{
		Command: "/bin/sh",
		Args:    []string{"-c", `grep -q '"stage":"layout_detective"' && echo '{"status":"ok"}'`},
	})

	result, err := e.Execute(context.Background(), domain.AgentRequest{
		Stage:                domain.StageLayoutDetective,
		StageDescriptionPath: "stages/layout_detective.md",
		AgentPersonaPath:     "personas/layout_detective.md",
		WorkspacePath:        t.TempDir(),
		PriorArtifacts:       []string{"a.md"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
}

func TestWireRequest_MarshalsStageAsString(t *testing.T) {
	payload, err := json.Marshal(wireRequest{Stage: string(domain.StageTranscript)})
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"stage":"transcript"`)
}
