package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/coze"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/domain"
)

// maxUploadSize caps multipart uploads (20MB covers artwork scans).
const maxUploadSize = 20 << 20

// HandleUpload handles POST /api/upload: relays a multipart file to the
// platform's file service and returns the platform file id.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		Fail(w, http.StatusBadRequest, "没有文件上传")
		return
	}
	defer file.Close()

	info, err := h.platform.UploadFile(r.Context(), file, header.Filename)
	if err != nil {
		slog.Error("file upload failed", "filename", header.Filename, "error", err)
		Fail(w, http.StatusInternalServerError, fmt.Sprintf("上传到Coze API失败: %v", err))
		return
	}

	slog.Info("file uploaded", "filename", header.Filename, "file_id", info.ID, "bytes", info.Bytes)
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"fileData": map[string]interface{}{
			"data": map[string]interface{}{
				"id":       info.ID,
				"fileName": info.FileName,
				"bytes":    info.Bytes,
			},
		},
	})
}

type chatRequest struct {
	AgentTitle        string   `json:"agentTitle"`
	Message           string   `json:"message"`
	FileIDs           []string `json:"fileIds"`
	SessionID         string   `json:"sessionId"`
	ResetConversation bool     `json:"resetConversation"`
}

// HandleChat handles POST /api/chat: one message to one agent, reusing that
// agent's remote conversation within the session.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	agent, ok := h.catalog.Lookup(req.AgentTitle)
	if !ok {
		Fail(w, http.StatusBadRequest, fmt.Sprintf("未找到智能体: %s", req.AgentTitle))
		return
	}

	session, err := h.repo.Session(r.Context(), sessionID)
	if err != nil {
		Fail(w, http.StatusInternalServerError, fmt.Sprintf("聊天请求失败: %v", err))
		return
	}
	conv := session.Conversation(req.AgentTitle, agent.BotID, req.ResetConversation)

	slog.Info("chat request",
		"session_id", sessionID,
		"agent", req.AgentTitle,
		"message_length", len(req.Message),
		"file_count", len(req.FileIDs),
	)

	result, err := h.platform.SendMessage(r.Context(), coze.SendParams{
		BotID:          agent.BotID,
		UserID:         session.UserID,
		Message:        req.Message,
		FileIDs:        req.FileIDs,
		ConversationID: conv.ConversationID,
		MaxPolls:       h.cfg.ChatMaxPolls,
	})
	if err != nil {
		slog.Warn("chat turn failed", "session_id", sessionID, "agent", req.AgentTitle, "error", err)
		Fail(w, chatErrorStatus(err), err.Error())
		return
	}

	conv.ConversationID = result.ConversationID
	conv.LastChatID = result.ChatID
	session.ChatHistory = append(session.ChatHistory, chatEntry(result, req.AgentTitle, req.Message))
	if err := h.repo.SaveSession(r.Context(), sessionID, session); err != nil {
		slog.Error("failed to save chat session", "session_id", sessionID, "error", err)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        result.Reply,
		"chatId":         result.ChatID,
		"conversationId": result.ConversationID,
	})
}

func chatEntry(result *coze.TurnResult, agentTitle, userMessage string) domain.ChatEntry {
	return domain.ChatEntry{
		ChatID:      result.ChatID,
		UserMessage: userMessage,
		AgentTitle:  agentTitle,
		AgentReply:  result.Reply,
		Timestamp:   time.Now().UnixMilli(),
	}
}

// chatErrorStatus maps client failures onto the original server's status
// split: platform rejections and unfinished turns are 400, transport
// failures are 500.
func chatErrorStatus(err error) int {
	var apiErr *coze.APIError
	var incomplete *coze.TurnIncompleteError
	switch {
	case errors.As(err, &apiErr),
		errors.As(err, &incomplete),
		errors.Is(err, coze.ErrNoAnswer),
		errors.Is(err, coze.ErrPollingTimeout):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HandleChatHistory handles GET /api/history.
func (h *Handler) HandleChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		Fail(w, http.StatusBadRequest, "缺少sessionId")
		return
	}
	session, ok, err := h.repo.LookupSession(r.Context(), sessionID)
	if err != nil {
		Fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		Fail(w, http.StatusNotFound, "会话不存在")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": session.ChatHistory,
	})
}

// HandleDialogue handles POST /api/dialogue: every requested agent answers
// the raw message concurrently, with no ordering or context injection.
func (h *Handler) HandleDialogue(w http.ResponseWriter, r *http.Request) {
	var req debateRequest
	if !decode(w, r, &req) {
		return
	}
	replies, err := h.orch.RunDialogue(r.Context(), req.runRequest(), h.cfg.ChatMaxPolls)
	if err != nil {
		Fail(w, http.StatusBadRequest, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"responses": replies,
	})
}
