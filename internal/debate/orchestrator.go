// Package debate sequences multi-agent debate turns: rank the agents
// against the user message, then drive each agent in order, feeding later
// agents the replies collected so far.
package debate

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/agents"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/coze"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/domain"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/relevance"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/store"
)

// Conversationalist is the slice of the platform client the orchestrator
// needs; tests substitute a fake.
type Conversationalist interface {
	SendMessage(ctx context.Context, p coze.SendParams) (*coze.TurnResult, error)
}

// Orchestrator runs debate and dialogue turns.
type Orchestrator struct {
	catalog  *agents.Catalog
	scorer   *relevance.Scorer
	client   Conversationalist
	repo     store.Repository
	maxPolls int
	now      func() time.Time
}

// New creates an orchestrator. maxPolls is the per-agent poll budget for
// debate turns.
func New(catalog *agents.Catalog, scorer *relevance.Scorer, client Conversationalist, repo store.Repository, maxPolls int) *Orchestrator {
	return &Orchestrator{
		catalog:  catalog,
		scorer:   scorer,
		client:   client,
		repo:     repo,
		maxPolls: maxPolls,
		now:      time.Now,
	}
}

// Validate checks the agent set before any session or remote side effect.
func (o *Orchestrator) Validate(agentTitles []string) error {
	return o.catalog.Validate(agentTitles)
}

// RunRequest describes one debate turn.
type RunRequest struct {
	Message     string
	AgentTitles []string
	FileIDs     []string
	SessionID   string
	Reset       bool
}

// Run executes a debate turn as an event sequence. The caller is expected
// to have validated the agent set. The sequence is: one order event, one
// response event per agent in rank order, then a terminal complete event —
// or a terminal error event if the turn cannot start. Cancelling ctx stops
// the loop before the next remote call with no terminal event.
//
// A failed agent never stops the loop: its reply is substituted with a
// bracketed error marker and later agents still run.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		session, err := o.repo.DebateSession(ctx, req.SessionID)
		if err != nil {
			yield(ErrorEvent{Type: "error", Error: fmt.Sprintf("辩论请求失败: %v", err)})
			return
		}
		if req.Reset {
			session.Reset()
		}

		// Ranking is frozen here; replies arriving later never reorder it.
		ranked := o.scorer.Rank(req.Message, req.AgentTitles)
		ordered := make([]string, len(ranked))
		similarities := make(map[string]float64, len(ranked))
		for i, r := range ranked {
			ordered[i] = r.Title
			similarities[r.Title] = r.Score
		}

		if !yield(OrderEvent{Type: "order", OrderedAgents: ordered, Similarities: similarities}) {
			return
		}

		type priorReply struct {
			title string
			text  string
		}
		var prior []priorReply
		responses := make(map[string]string, len(ranked))

		for i, r := range ranked {
			if ctx.Err() != nil {
				slog.Info("debate turn cancelled",
					"session_id", req.SessionID, "completed_agents", i)
				o.save(req.SessionID, session)
				return
			}

			prompt := req.Message
			if len(prior) > 0 {
				var b strings.Builder
				fmt.Fprintf(&b, "用户说: \"%s\"\n\n其他专家的评论:\n", req.Message)
				for _, p := range prior {
					fmt.Fprintf(&b, "%s: \"%s\"\n", p.title, p.text)
				}
				fmt.Fprintf(&b, "\n请你作为%s，考虑以上评论，给出自己的看法，可以反驳，也可以支持。（自然简洁回答）", r.Title)
				prompt = b.String()
			}

			agent, _ := o.catalog.Lookup(r.Title)
			result, err := o.client.SendMessage(ctx, coze.SendParams{
				BotID:          agent.BotID,
				UserID:         session.UserID,
				Message:        prompt,
				FileIDs:        req.FileIDs,
				ConversationID: session.ConversationID,
				MaxPolls:       o.maxPolls,
			})

			ev := ResponseEvent{
				Type:       "response",
				AgentTitle: r.Title,
				Similarity: r.Score,
				IsComplete: i == len(ranked)-1,
				Index:      i,
			}
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					o.save(req.SessionID, session)
					return
				}
				slog.Warn("debate agent turn failed",
					"session_id", req.SessionID, "agent", r.Title, "error", err)
				ev.Response = fmt.Sprintf("[错误: %v]", err)
				ev.IsError = true
			} else {
				session.ConversationID = result.ConversationID
				session.AgentLastChats[r.Title] = result.ChatID
				ev.Response = result.Reply
			}

			prior = append(prior, priorReply{title: r.Title, text: ev.Response})
			responses[r.Title] = ev.Response
			if !yield(ev) {
				o.save(req.SessionID, session)
				return
			}
		}

		session.ChatHistory = append(session.ChatHistory, domainEntry(req.Message, responses, similarities, o.now()))
		o.save(req.SessionID, session)

		yield(CompleteEvent{
			Type:           "complete",
			Responses:      responses,
			Similarities:   similarities,
			OrderedAgents:  ordered,
			ConversationID: session.ConversationID,
		})
	}
}

// BatchResult is the drained form of a debate turn.
type BatchResult struct {
	Responses      map[string]string
	Similarities   map[string]float64
	OrderedAgents  []string
	ConversationID string
}

// RunBatch drains Run silently and collects the aggregate.
func (o *Orchestrator) RunBatch(ctx context.Context, req RunRequest) (*BatchResult, error) {
	var out *BatchResult
	var turnErr error
	for ev := range o.Run(ctx, req) {
		switch e := ev.(type) {
		case CompleteEvent:
			out = &BatchResult{
				Responses:      e.Responses,
				Similarities:   e.Similarities,
				OrderedAgents:  e.OrderedAgents,
				ConversationID: e.ConversationID,
			}
		case ErrorEvent:
			turnErr = errors.New(e.Error)
		}
	}
	if turnErr != nil {
		return nil, turnErr
	}
	if out == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("辩论请求失败: 未收到完成事件")
	}
	return out, nil
}

// save writes the session back regardless of the request context's state,
// so conversation handles from completed agents survive a mid-turn
// disconnect.
func (o *Orchestrator) save(sessionID string, session *domain.DebateSession) {
	if err := o.repo.SaveDebateSession(context.Background(), sessionID, session); err != nil {
		slog.Error("failed to save debate session", "session_id", sessionID, "error", err)
	}
}

func domainEntry(message string, responses map[string]string, similarities map[string]float64, at time.Time) domain.DebateEntry {
	return domain.DebateEntry{
		UserMessage:    message,
		AgentResponses: responses,
		Similarities:   similarities,
		Timestamp:      at.UnixMilli(),
	}
}
