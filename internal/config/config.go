// Package config loads pipeline.yaml plus environment variables into a
// validated Config, the same two-source (YAML + env) shape the original
// pipeline's PipelineSettings (pydantic BaseSettings) uses: paths and
// tunables come from YAML, secrets (tokens, API keys) come from the
// environment and are never written to a config file.
package config

import "time"

// Config is the fully resolved, validated pipeline configuration.
type Config struct {
	Paths       PathsConfig
	Agent       AgentConfig
	QA          QAConfig
	Elicit      ElicitationDefaults
	Publish     PublishingConfig
	Resources   ResourceConfig
	Queue       QueueConfig
	ModelRouter ModelRouterConfig
	Slack       SlackConfig
}

// PathsConfig locates the directories the pipeline reads from and writes
// to. Mirrors settings.py's workspace_dir/queue_dir/config_dir/workflows_dir.
type PathsConfig struct {
	WorkspaceDir string `yaml:"workspace_dir"`
	QueueDir     string `yaml:"queue_dir"`
	WorkflowsDir string `yaml:"workflows_dir"`
}

// AgentConfig configures the BMAD agent subprocess adapter
// (pkg/agentexec). Mirrors settings.py's agent_timeout_seconds.
type AgentConfig struct {
	Command        string   `yaml:"command"`
	Args           []string `yaml:"args"`
	TimeoutSeconds float64  `yaml:"timeout_seconds"`
}

// Timeout returns Command's subprocess deadline as a time.Duration,
// defaulting to 300s (settings.py's own default) when unset.
func (a AgentConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(a.TimeoutSeconds * float64(time.Second))
}

// DispatchTimeout returns the QA model-dispatch deadline: the original's
// bootstrap.py computes this as max(300, agent_timeout_seconds / 2), so a
// slow agent timeout doesn't force QA dispatch calls to wait even longer.
func (a AgentConfig) DispatchTimeout() time.Duration {
	half := a.Timeout() / 2
	if half < 300*time.Second {
		return 300 * time.Second
	}
	return half
}

// QAConfig configures the reflection loop's escalation threshold.
// Mirrors settings.py's min_qa_score.
type QAConfig struct {
	MinScore int `yaml:"min_qa_score"`
}

// ElicitationDefaults are applied when the operator skips the elicitation
// questions. Mirrors settings.py's default_topic_focus and
// default_duration_preference.
type ElicitationDefaults struct {
	TopicFocus         string `yaml:"default_topic_focus"`
	DurationPreference string `yaml:"default_duration_preference"`
}

// PublishingConfig configures the delivery stage's description/hashtag
// generation. Mirrors settings.py's publishing_language and
// publishing_description_variants.
type PublishingConfig struct {
	Language            string `yaml:"language"`
	DescriptionVariants int    `yaml:"description_variants"`
}

// ResourceConfig mirrors pkg/throttle.Config, expressed in YAML-friendly
// units (megabytes and seconds rather than bytes and time.Duration).
// Grounded on original_source's infrastructure/adapters/proc_resource_monitor.py
// threshold fields, which this package's YAML keys name directly.
type ResourceConfig struct {
	MemoryLimitMB           int     `yaml:"memory_limit_mb"`
	CPULimitPercent         float64 `yaml:"cpu_limit_percent"`
	TemperatureLimitCelsius float64 `yaml:"temperature_limit_celsius"`
	CheckIntervalSeconds    float64 `yaml:"check_interval_seconds"`
}

// QueueConfig tunes the consumer's poll loop.
type QueueConfig struct {
	PollIntervalSeconds float64 `yaml:"poll_interval_seconds"`
	PollJitterSeconds   float64 `yaml:"poll_jitter_seconds"`
}

// ModelRouterConfig points pkg/modeldispatch at the external model-router
// process it dials over gRPC.
type ModelRouterConfig struct {
	Addr string `yaml:"addr"`
}

// SlackConfig configures pkg/slackmsg. Token is never read from YAML —
// only from the environment variable TokenEnv names (SLACK_BOT_TOKEN by
// default) — matching the
// teacher's own TokenEnv-indirection convention in pkg/config's
// SlackYAMLConfig (a token *env var name*, not a token, lives in YAML).
type SlackConfig struct {
	Enabled   bool   `yaml:"enabled"`
	TokenEnv  string `yaml:"token_env"`
	ChannelID string `yaml:"channel_id"`
}
