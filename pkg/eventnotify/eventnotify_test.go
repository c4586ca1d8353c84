package eventnotify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/pipeline/pkg/domain"
	"github.com/reelforge/pipeline/pkg/eventbus"
)

type recordingMessenger struct {
	notified []string
}

func (m *recordingMessenger) AskUser(ctx context.Context, question string) (string, error) {
	return "", nil
}
func (m *recordingMessenger) NotifyUser(ctx context.Context, message string) error {
	m.notified = append(m.notified, message)
	return nil
}
func (m *recordingMessenger) SendFile(ctx context.Context, path, caption string) error { return nil }

func TestRegister_ForwardsNotifyWorthyEvents(t *testing.T) {
	bus := eventbus.New()
	messenger := &recordingMessenger{}
	Register(bus, messenger)

	stage := domain.StageContent
	bus.Publish(context.Background(), domain.PipelineEvent{Name: domain.EventStageCompleted, Stage: &stage})

	require.Len(t, messenger.notified, 1)
	assert.Equal(t, "Stage content completed.", messenger.notified[0])
}

func TestRegister_IgnoresEventsNotInAllowlist(t *testing.T) {
	bus := eventbus.New()
	messenger := &recordingMessenger{}
	Register(bus, messenger)

	bus.Publish(context.Background(), domain.PipelineEvent{Name: "pipeline.checkpoint_saved"})

	assert.Empty(t, messenger.notified)
}

func TestFormatMessage_RunFailedIncludesReason(t *testing.T) {
	msg := formatMessage(domain.PipelineEvent{
		Name: domain.EventRunFailed,
		Data: map[string]any{"reason": "agent timed out"},
	})
	assert.Equal(t, "Pipeline failed: agent timed out", msg)
}

func TestFormatMessage_QAGatePassedIncludesScore(t *testing.T) {
	stage := domain.StageAssembly
	msg := formatMessage(domain.PipelineEvent{
		Name:  domain.EventQAGatePassed,
		Stage: &stage,
		Data:  map[string]any{"score": 82},
	})
	assert.Equal(t, "QA gate assembly: PASS (score: 82/100)", msg)
}
