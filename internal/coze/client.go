// Package coze implements the client for the remote chat platform's
// asynchronous turn protocol: submit a message, poll the turn status until
// it leaves in_progress, then fetch the assistant answer.
package coze

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = time.Second
	defaultMaxPolls     = 100
)

// Client talks to the chat platform. Safe for concurrent use.
type Client struct {
	http         *resty.Client
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval overrides the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithTimeout overrides the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// NewClient creates a platform client with bearer auth.
func NewClient(baseURL, token string, opts ...Option) *Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(baseURL)
	httpClient.SetAuthToken(token)
	httpClient.SetTimeout(defaultTimeout)

	c := &Client{
		http:         httpClient,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendMessage runs one full turn: submit, poll until terminal, fetch the
// first assistant answer. All agents' failures surface as typed errors so
// the orchestrator can isolate them per agent.
func (c *Client) SendMessage(ctx context.Context, p SendParams) (*TurnResult, error) {
	content, err := buildContent(p.Message, p.FileIDs)
	if err != nil {
		return nil, &RemoteError{Op: "发起对话请求失败", Err: err}
	}

	body := submitRequest{
		BotID:  p.BotID,
		UserID: p.UserID,
		AdditionalMessages: []additionalMessage{
			{Role: "user", Content: content, ContentType: "object_string"},
		},
		AutoSaveHistory: true,
	}

	var env chatEnvelope
	req := c.http.R().SetContext(ctx).SetBody(body).SetResult(&env)
	if p.ConversationID != "" {
		req.SetQueryParam("conversation_id", p.ConversationID)
	}
	resp, err := req.Post("/v3/chat")
	if err != nil {
		return nil, &RemoteError{Op: "发起对话请求失败", Err: err}
	}
	if resp.IsError() {
		return nil, &APIError{Op: "发起对话请求失败", Code: resp.StatusCode(), Msg: resp.Status()}
	}
	if env.Code != 0 {
		return nil, &APIError{Op: "发起对话请求失败", Code: env.Code, Msg: env.Msg}
	}

	chatID := env.Data.ID
	conversationID := env.Data.ConversationID
	status := env.Data.Status

	maxPolls := p.MaxPolls
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	poll := newPoller(maxPolls)

	for status == StatusInProgress && poll.allow() {
		if err := c.sleep(ctx); err != nil {
			return nil, err
		}

		var pollEnv chatEnvelope
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("chat_id", chatID).
			SetQueryParam("conversation_id", conversationID).
			SetResult(&pollEnv).
			Get("/v3/chat/retrieve")
		if err != nil {
			return nil, &RemoteError{Op: "轮询对话状态时出错", Err: err}
		}
		if resp.StatusCode() == http.StatusNotFound {
			if poll.observedNotFound() {
				slog.Debug("chat briefly not found, retrying poll",
					"chat_id", chatID, "run", poll.notFoundRun)
				continue
			}
			return nil, &RemoteError{Op: "轮询对话状态时出错", Err: ErrPollingTimeout}
		}
		if resp.IsError() {
			return nil, &APIError{Op: "轮询对话状态时出错", Code: resp.StatusCode(), Msg: resp.Status()}
		}
		if pollEnv.Code != 0 {
			return nil, &APIError{Op: "轮询对话状态时出错", Code: pollEnv.Code, Msg: pollEnv.Msg}
		}
		status = pollEnv.Data.Status
		poll.observed()
	}

	if status == StatusInProgress {
		return nil, fmt.Errorf("%w: %d 次轮询后仍为 in_progress", ErrPollingTimeout, poll.polls)
	}
	if status != StatusCompleted {
		return nil, &TurnIncompleteError{Status: status, Polls: poll.polls}
	}

	reply, err := c.fetchAnswer(ctx, chatID, conversationID)
	if err != nil {
		return nil, err
	}
	return &TurnResult{ChatID: chatID, ConversationID: conversationID, Reply: reply}, nil
}

// fetchAnswer lists the turn's messages and picks the assistant answer.
func (c *Client) fetchAnswer(ctx context.Context, chatID, conversationID string) (string, error) {
	var env messageListEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("chat_id", chatID).
		SetQueryParam("conversation_id", conversationID).
		SetResult(&env).
		Get("/v3/chat/message/list")
	if err != nil {
		return "", &RemoteError{Op: "获取对话消息时出错", Err: err}
	}
	if resp.IsError() {
		return "", &APIError{Op: "获取对话消息时出错", Code: resp.StatusCode(), Msg: resp.Status()}
	}
	if env.Code != 0 {
		return "", &APIError{Op: "获取对话消息时出错", Code: env.Code, Msg: env.Msg}
	}
	for _, m := range env.Data {
		if m.Role == "assistant" && m.Type == "answer" {
			return m.Content, nil
		}
	}
	return "", ErrNoAnswer
}

func (c *Client) sleep(ctx context.Context) error {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
