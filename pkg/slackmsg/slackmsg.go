// Package slackmsg implements ports.Messenger over Slack, replacing the
// original pipeline's Telegram bot adapter with the chat surface the
// teacher repo already talks to. One-way notifications post a Block Kit
// message; AskUser posts a question and polls channel history for a
// reply, the same watermark-then-poll shape the original's Telegram
// adapter uses so stale messages are never mistaken for a reply.
package slackmsg

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
)

// Config configures the Messenger.
type Config struct {
	Token        string
	ChannelID    string
	PollInterval time.Duration // default 2s, matching the original's _REPLY_POLL_INTERVAL
	AskTimeout   time.Duration // default 300s, matching the original's _ASK_USER_TIMEOUT_SECONDS
}

// Messenger implements ports.Messenger over a single Slack channel.
type Messenger struct {
	api          *goslack.Client
	channelID    string
	pollInterval time.Duration
	askTimeout   time.Duration
	logger       *slog.Logger
}

// New constructs a Messenger from cfg, filling in the original's default
// poll interval and ask-user timeout when unset.
func New(cfg Config) *Messenger {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	askTimeout := cfg.AskTimeout
	if askTimeout <= 0 {
		askTimeout = 300 * time.Second
	}
	return &Messenger{
		api:          goslack.New(cfg.Token),
		channelID:    cfg.ChannelID,
		pollInterval: pollInterval,
		askTimeout:   askTimeout,
		logger:       slog.Default().With("component", "slackmsg"),
	}
}

// NotifyUser posts a one-way status update to the configured channel.
func (m *Messenger) NotifyUser(ctx context.Context, message string) error {
	_, _, err := m.api.PostMessageContext(ctx, m.channelID,
		goslack.MsgOptionBlocks(textBlock(message)),
	)
	if err != nil {
		return fmt.Errorf("slack post message: %w", err)
	}
	return nil
}

// AskUser posts question, then polls channel history for the first human
// reply newer than the post's own timestamp (its "watermark"), up to
// askTimeout. Returns the reply text, or an error on timeout.
func (m *Messenger) AskUser(ctx context.Context, question string) (string, error) {
	ts, _, err := m.api.PostMessageContext(ctx, m.channelID,
		goslack.MsgOptionBlocks(textBlock(question)),
	)
	if err != nil {
		return "", fmt.Errorf("slack post question: %w", err)
	}

	deadline := time.Now().Add(m.askTimeout)
	for time.Now().Before(deadline) {
		reply, found, err := m.pollForReply(ctx, ts)
		if err != nil {
			m.logger.Warn("error polling for reply, retrying", "error", err)
		} else if found {
			return reply, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}

	return "", fmt.Errorf("timed out waiting for reply after %s", m.askTimeout)
}

func (m *Messenger) pollForReply(ctx context.Context, watermarkTS string) (string, bool, error) {
	history, err := m.api.GetConversationHistoryContext(ctx, &goslack.GetConversationHistoryParameters{
		ChannelID: m.channelID,
		Oldest:    watermarkTS,
		Limit:     50,
	})
	if err != nil {
		return "", false, fmt.Errorf("conversations.history: %w", err)
	}

	reply, found := selectReply(history.Messages, watermarkTS)
	return reply, found, nil
}

// selectReply picks the first human message in messages that isn't the
// watermark message itself and isn't a bot echo. messages is assumed to
// be in the reverse-chronological order the Slack API returns.
func selectReply(messages []goslack.Message, watermarkTS string) (string, bool) {
	for _, msg := range messages {
		if msg.Timestamp == watermarkTS {
			continue // the question itself
		}
		if msg.BotID != "" || msg.User == "" {
			continue // ignore bot echoes
		}
		if text := strings.TrimSpace(msg.Text); text != "" {
			return text, true
		}
	}
	return "", false
}

// SendFile uploads the file at path with caption to the configured
// channel.
func (m *Messenger) SendFile(ctx context.Context, path, caption string) error {
	_, err := m.api.UploadFileV2Context(ctx, goslack.UploadFileV2Parameters{
		Channel:        m.channelID,
		File:           path,
		Filename:       filepath.Base(path),
		InitialComment: caption,
	})
	if err != nil {
		return fmt.Errorf("slack upload file %s: %w", path, err)
	}
	return nil
}

func textBlock(text string) goslack.Block {
	return goslack.NewSectionBlock(
		goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
		nil, nil,
	)
}
