package reflection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipeline/pkg/domain"
)

type fakeAgent struct {
	calls    int
	results  []domain.AgentResult
	requests []domain.AgentRequest
}

func (f *fakeAgent) Execute(ctx context.Context, request domain.AgentRequest) (domain.AgentResult, error) {
	f.requests = append(f.requests, request)
	i := f.calls
	f.calls++
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i], nil
}

type fakeModel struct {
	responses []string
	calls     int
}

func (f *fakeModel) Dispatch(ctx context.Context, role, prompt, model string) (string, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func TestRun_PassesOnFirstAttempt(t *testing.T) {
	agent := &fakeAgent{results: []domain.AgentResult{{Status: "ok", Artifacts: []string{"a.md"}}}}
	model := &fakeModel{responses: []string{`{"decision":"PASS","score":90,"gate":"g","attempt":1,"confidence":0.9}`}}

	loop := New(agent, model)
	result, err := loop.Run(context.Background(), domain.AgentRequest{Stage: domain.StageRouter}, "g", "criteria")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.False(t, result.EscalationNeeded)
	assert.Equal(t, domain.QADecisionPass, result.BestCritique.Decision)
}

func TestRun_ReworkThenPass(t *testing.T) {
	agent := &fakeAgent{results: []domain.AgentResult{
		{Status: "ok", Artifacts: []string{"a1.md"}},
		{Status: "ok", Artifacts: []string{"a2.md"}},
	}}
	model := &fakeModel{responses: []string{
		`{"decision":"REWORK","score":30,"gate":"g","attempt":1,"prescriptive_fixes":["fix x"]}`,
		`{"decision":"PASS","score":85,"gate":"g","attempt":2}`,
	}}

	loop := New(agent, model)
	result, err := loop.Run(context.Background(), domain.AgentRequest{Stage: domain.StageContent}, "g", "criteria")

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []string{"a2.md"}, result.Artifacts)
}

func TestRun_ReworkRequestPreservesWorkspacePath(t *testing.T) {
	agent := &fakeAgent{results: []domain.AgentResult{
		{Status: "ok", Artifacts: []string{"a1.md"}},
		{Status: "ok", Artifacts: []string{"a2.md"}},
	}}
	model := &fakeModel{responses: []string{
		`{"decision":"REWORK","score":30,"gate":"g","attempt":1,"prescriptive_fixes":["fix x"]}`,
		`{"decision":"PASS","score":85,"gate":"g","attempt":2}`,
	}}

	loop := New(agent, model)
	request := domain.AgentRequest{Stage: domain.StageContent, WorkspacePath: "/runs/20260731-abcd1234"}
	_, err := loop.Run(context.Background(), request, "g", "criteria")

	require.NoError(t, err)
	require.Len(t, agent.requests, 2)
	assert.Equal(t, "/runs/20260731-abcd1234", agent.requests[0].WorkspacePath)
	assert.Equal(t, "/runs/20260731-abcd1234", agent.requests[1].WorkspacePath,
		"rework retry must keep launching the agent subprocess in the run's workspace directory")
}

func TestRun_ExhaustsAttemptsAndEscalates(t *testing.T) {
	agent := &fakeAgent{results: []domain.AgentResult{
		{Artifacts: []string{"a1.md"}}, {Artifacts: []string{"a2.md"}}, {Artifacts: []string{"a3.md"}},
	}}
	model := &fakeModel{responses: []string{
		`{"decision":"REWORK","score":10,"gate":"g","attempt":1}`,
		`{"decision":"REWORK","score":20,"gate":"g","attempt":2}`,
		`{"decision":"REWORK","score":15,"gate":"g","attempt":3}`,
	}}

	loop := New(agent, model)
	result, err := loop.Run(context.Background(), domain.AgentRequest{Stage: domain.StageLayoutDetective}, "g", "criteria")

	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.True(t, result.EscalationNeeded)
	assert.Equal(t, 20, result.BestCritique.Score, "best-of-three must keep the highest score across all attempts")
}

func TestRun_FailShortCircuitsToBestOfN(t *testing.T) {
	agent := &fakeAgent{results: []domain.AgentResult{{Artifacts: []string{"a1.md"}}}}
	model := &fakeModel{responses: []string{`{"decision":"FAIL","score":5,"gate":"g","attempt":1}`}}

	loop := New(agent, model)
	result, err := loop.Run(context.Background(), domain.AgentRequest{Stage: domain.StageResearch}, "g", "criteria")

	require.NoError(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.True(t, result.EscalationNeeded)
}

func TestParseCritique_StripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"decision\":\"PASS\",\"score\":75,\"gate\":\"g\",\"attempt\":1}\n```"

	critique, err := parseCritique(raw, "g", 1)

	require.NoError(t, err)
	assert.Equal(t, 75, critique.Score)
}

func TestParseCritique_InvalidJSONIsQAError(t *testing.T) {
	_, err := parseCritique("not json at all", "g", 1)
	require.Error(t, err)
}

func TestParseCritique_InvalidDecisionIsQAError(t *testing.T) {
	_, err := parseCritique(`{"decision":"MAYBE","score":50,"gate":"g","attempt":1}`, "g", 1)
	require.Error(t, err)
}
