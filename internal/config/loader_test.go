package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(body), 0o644))
}

func TestLoad_AppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
agent:
  command: bmad-agent
model_router:
  addr: localhost:7001
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "workspace", cfg.Paths.WorkspaceDir)
	assert.Equal(t, "queue", cfg.Paths.QueueDir)
	assert.Equal(t, 300.0, cfg.Agent.TimeoutSeconds)
	assert.Equal(t, 40, cfg.QA.MinScore)
	assert.Equal(t, "60-90s", cfg.Elicit.DurationPreference)
	assert.Equal(t, 3, cfg.Publish.DescriptionVariants)
	assert.Equal(t, 3072, cfg.Resources.MemoryLimitMB)
	assert.Equal(t, "SLACK_BOT_TOKEN", cfg.Slack.TokenEnv)
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PIPELINE_MODEL_ROUTER_ADDR", "router.internal:7001")
	writeConfig(t, dir, `
agent:
  command: bmad-agent
model_router:
  addr: ${PIPELINE_MODEL_ROUTER_ADDR}
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "router.internal:7001", cfg.ModelRouter.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "agent: [this is not valid: yaml")

	_, err := Load(dir)
	require.Error(t, err)
}

func TestLoad_RejectsMissingAgentCommand(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
model_router:
  addr: localhost:7001
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent.command")
}

func TestLoad_RejectsMissingModelRouterAddr(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
agent:
  command: bmad-agent
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model_router.addr")
}

func TestLoad_RejectsSlackEnabledWithoutChannel(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
agent:
  command: bmad-agent
model_router:
  addr: localhost:7001
slack:
  enabled: true
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack.channel_id")
}
