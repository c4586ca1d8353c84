package slackmsg

import (
	"testing"
	"time"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
)

func TestNew_FillsDefaults(t *testing.T) {
	m := New(Config{Token: "xoxb-test", ChannelID: "C123"})
	assert.Equal(t, 2*time.Second, m.pollInterval)
	assert.Equal(t, 300*time.Second, m.askTimeout)
}

func TestNew_HonorsExplicitConfig(t *testing.T) {
	m := New(Config{
		Token:        "xoxb-test",
		ChannelID:    "C123",
		PollInterval: 5 * time.Second,
		AskTimeout:   time.Minute,
	})
	assert.Equal(t, 5*time.Second, m.pollInterval)
	assert.Equal(t, time.Minute, m.askTimeout)
}

func TestSelectReply_SkipsWatermarkMessage(t *testing.T) {
	messages := []goslack.Message{
		{Msg: goslack.Msg{Timestamp: "100.0", User: "U1", Text: "the question"}},
	}
	_, found := selectReply(messages, "100.0")
	assert.False(t, found, "the question itself should never be treated as a reply")
}

func TestSelectReply_SkipsBotEchoes(t *testing.T) {
	messages := []goslack.Message{
		{Msg: goslack.Msg{Timestamp: "101.0", BotID: "B1", Text: "bot echo"}},
		{Msg: goslack.Msg{Timestamp: "102.0", User: "U1", Text: "real reply"}},
	}
	reply, found := selectReply(messages, "100.0")
	assert.True(t, found)
	assert.Equal(t, "real reply", reply)
}

func TestSelectReply_SkipsEmptyText(t *testing.T) {
	messages := []goslack.Message{
		{Msg: goslack.Msg{Timestamp: "101.0", User: "U1", Text: "   "}},
		{Msg: goslack.Msg{Timestamp: "102.0", User: "U1", Text: "actual answer"}},
	}
	reply, found := selectReply(messages, "100.0")
	assert.True(t, found)
	assert.Equal(t, "actual answer", reply)
}

func TestSelectReply_NoneFound(t *testing.T) {
	_, found := selectReply(nil, "100.0")
	assert.False(t, found)
}

func TestTextBlock_WrapsMarkdownSection(t *testing.T) {
	block := textBlock("hello")
	section, ok := block.(*goslack.SectionBlock)
	if assert.True(t, ok) {
		assert.Equal(t, goslack.MarkdownType, section.Text.Type)
		assert.Equal(t, "hello", section.Text.Text)
	}
}
