package debate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/coze"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/domain"
)

// DialogueReply is one agent's independent answer in dialogue mode.
type DialogueReply struct {
	AgentTitle string `json:"agentTitle"`
	Response   string `json:"response"`
	IsError    bool   `json:"isError,omitempty"`
}

// RunDialogue answers the raw message with every requested agent
// concurrently. Unlike a debate there is no context injection and no
// ordering, so the agents' turns are independent: each uses its own remote
// conversation from the single-agent session, and each failure is reported
// for that agent alone.
func (o *Orchestrator) RunDialogue(ctx context.Context, req RunRequest, maxPolls int) ([]DialogueReply, error) {
	if err := o.Validate(req.AgentTitles); err != nil {
		return nil, err
	}
	session, err := o.repo.Session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	replies := make([]DialogueReply, len(req.AgentTitles))

	for i, title := range req.AgentTitles {
		agent, _ := o.catalog.Lookup(title)

		mu.Lock()
		conv := session.Conversation(title, agent.BotID, req.Reset)
		conversationID := conv.ConversationID
		mu.Unlock()

		wg.Add(1)
		go func(i int, title, botID, conversationID string) {
			defer wg.Done()
			result, err := o.client.SendMessage(ctx, coze.SendParams{
				BotID:          botID,
				UserID:         session.UserID,
				Message:        req.Message,
				FileIDs:        req.FileIDs,
				ConversationID: conversationID,
				MaxPolls:       maxPolls,
			})
			if err != nil {
				slog.Warn("dialogue agent turn failed",
					"session_id", req.SessionID, "agent", title, "error", err)
				replies[i] = DialogueReply{
					AgentTitle: title,
					Response:   fmt.Sprintf("[错误: %v]", err),
					IsError:    true,
				}
				return
			}
			mu.Lock()
			conv := session.Conversation(title, botID, false)
			conv.ConversationID = result.ConversationID
			conv.LastChatID = result.ChatID
			session.ChatHistory = append(session.ChatHistory, domain.ChatEntry{
				ChatID:      result.ChatID,
				UserMessage: req.Message,
				AgentTitle:  title,
				AgentReply:  result.Reply,
				Timestamp:   o.now().UnixMilli(),
			})
			mu.Unlock()
			replies[i] = DialogueReply{AgentTitle: title, Response: result.Reply}
		}(i, title, agent.BotID, conversationID)
	}
	wg.Wait()

	if err := o.repo.SaveSession(context.Background(), req.SessionID, session); err != nil {
		slog.Error("failed to save chat session", "session_id", req.SessionID, "error", err)
	}
	return replies, nil
}
