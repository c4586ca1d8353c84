package config

import "fmt"

// validate performs the same kind of fail-fast, at-boot checks
// settings.py's pydantic validators perform. The caller
// (cmd/pipeline-consumer) logs the returned error and exits.
func validate(cfg *Config) error {
	if cfg.QA.MinScore < 0 || cfg.QA.MinScore > 100 {
		return NewValidationError("qa.min_qa_score", fmt.Errorf("must be 0-100, got %d", cfg.QA.MinScore))
	}
	if cfg.Publish.DescriptionVariants < 1 || cfg.Publish.DescriptionVariants > 10 {
		return NewValidationError("publish.description_variants", fmt.Errorf("must be 1-10, got %d", cfg.Publish.DescriptionVariants))
	}
	if cfg.ModelRouter.Addr == "" {
		return NewValidationError("model_router.addr", fmt.Errorf("required"))
	}
	if cfg.Slack.Enabled && cfg.Slack.ChannelID == "" {
		return NewValidationError("slack.channel_id", fmt.Errorf("required when slack.enabled is true"))
	}
	if cfg.Agent.Command == "" {
		return NewValidationError("agent.command", fmt.Errorf("required"))
	}
	return nil
}
