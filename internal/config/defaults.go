package config

// applyDefaults fills every field pipeline.yaml left unset with the
// original pipeline's own defaults (settings.py's Field(default=...)
// values) or, where the original has no equivalent (resource throttling,
// queue poll tuning — both added by this module's expanded scope), this
// module's own reference defaults (pkg/throttle.DefaultConfig's
// 3GB/80%/80C/30s).
func applyDefaults(cfg *Config) {
	if cfg.Paths.WorkspaceDir == "" {
		cfg.Paths.WorkspaceDir = "workspace"
	}
	if cfg.Paths.QueueDir == "" {
		cfg.Paths.QueueDir = "queue"
	}
	if cfg.Paths.WorkflowsDir == "" {
		cfg.Paths.WorkflowsDir = "workflows"
	}

	if cfg.Agent.TimeoutSeconds <= 0 {
		cfg.Agent.TimeoutSeconds = 300.0
	}

	if cfg.QA.MinScore <= 0 {
		cfg.QA.MinScore = 40
	}

	if cfg.Elicit.DurationPreference == "" {
		cfg.Elicit.DurationPreference = "60-90s"
	}

	if cfg.Publish.DescriptionVariants <= 0 {
		cfg.Publish.DescriptionVariants = 3
	}

	if cfg.Resources.MemoryLimitMB <= 0 {
		cfg.Resources.MemoryLimitMB = 3072
	}
	if cfg.Resources.CPULimitPercent <= 0 {
		cfg.Resources.CPULimitPercent = 80.0
	}
	if cfg.Resources.TemperatureLimitCelsius <= 0 {
		cfg.Resources.TemperatureLimitCelsius = 80.0
	}
	if cfg.Resources.CheckIntervalSeconds <= 0 {
		cfg.Resources.CheckIntervalSeconds = 30.0
	}

	if cfg.Queue.PollIntervalSeconds <= 0 {
		cfg.Queue.PollIntervalSeconds = 5.0
	}
	if cfg.Queue.PollJitterSeconds <= 0 {
		cfg.Queue.PollJitterSeconds = 1.0
	}

	if cfg.Slack.TokenEnv == "" {
		cfg.Slack.TokenEnv = "SLACK_BOT_TOKEN"
	}
}
