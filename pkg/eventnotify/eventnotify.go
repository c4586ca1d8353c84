// Package eventnotify subscribes to the event bus and forwards a
// formatted message to the operator's chat surface for the subset of
// events a human actually needs to see.
package eventnotify

import (
	"context"
	"fmt"

	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/eventbus"
	"github.com/reelforge/pipeline/pkg/ports"
)

// notifyEvents is the set of event names that reach the operator. Every
// other event on the bus is observability-only.
var notifyEvents = map[string]bool{
	domain.EventStageEntered:   true,
	domain.EventStageCompleted: true,
	domain.EventRunStarted:     true,
	domain.EventRunCompleted:   true,
	domain.EventRunFailed:      true,
	domain.EventQAGatePassed:   true,
}

// Register subscribes a listener on bus that formats and forwards
// notify-worthy events to messenger.
func Register(bus *eventbus.Bus, messenger ports.Messenger) {
	bus.Subscribe("eventnotify", func(ctx context.Context, event domain.PipelineEvent) error {
		if !notifyEvents[event.Name] {
			return nil
		}
		return messenger.NotifyUser(ctx, formatMessage(event))
	})
}

func formatMessage(event domain.PipelineEvent) string {
	stageName := "unknown"
	if event.Stage != nil {
		stageName = string(*event.Stage)
	}

	switch event.Name {
	case domain.EventStageEntered:
		return fmt.Sprintf("Processing stage: %s...", stageName)
	case domain.EventStageCompleted:
		return fmt.Sprintf("Stage %s completed.", stageName)
	case domain.EventRunStarted:
		return fmt.Sprintf("Started processing run %v.", event.Data["run_id"])
	case domain.EventRunCompleted:
		return "Pipeline completed successfully!"
	case domain.EventRunFailed:
		reason := event.Data["reason"]
		if reason == nil {
			reason = "unknown error"
		}
		return fmt.Sprintf("Pipeline failed: %v", reason)
	case domain.EventQAGatePassed:
		score := event.Data["score"]
		if score == nil {
			score = "?"
		}
		return fmt.Sprintf("QA gate %s: PASS (score: %v/100)", stageName, score)
	default:
		return fmt.Sprintf("Pipeline event: %s", event.Name)
	}
}
