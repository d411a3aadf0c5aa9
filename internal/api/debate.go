package api

import (
	"fmt"
	"log/slog"
	"net/http"
)

// HandleDebate handles POST /api/debate: the synchronous debate turn.
// Per-agent failures never surface as an HTTP error; they appear as
// bracketed markers inside the responses map.
func (h *Handler) HandleDebate(w http.ResponseWriter, r *http.Request) {
	var req debateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.orch.Validate(req.AgentTitles); err != nil {
		Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("debate request",
		"session_id", req.sessionID(),
		"agents", req.AgentTitles,
		"reset", req.ResetConversation,
	)

	result, err := h.orch.RunBatch(r.Context(), req.runRequest())
	if err != nil {
		Fail(w, http.StatusInternalServerError, fmt.Sprintf("辩论请求失败: %v", err))
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"responses":      result.Responses,
		"similarities":   result.Similarities,
		"orderedAgents":  result.OrderedAgents,
		"conversationId": result.ConversationID,
	})
}

// HandleDebateReset handles POST /api/debate/reset.
func (h *Handler) HandleDebateReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if !decode(w, r, &req) {
		return
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	existed, err := h.repo.ResetDebateSession(r.Context(), sessionID)
	if err != nil {
		Fail(w, http.StatusInternalServerError, fmt.Sprintf("重置辩论会话失败: %v", err))
		return
	}
	message := "已重置辩论会话"
	if !existed {
		message = "会话不存在，无需重置"
	}
	JSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": message})
}

// HandleDebateHistory handles GET /api/debate/history. The session is
// created when absent, so a fresh session id yields an empty history.
func (h *Handler) HandleDebateHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = "default"
	}
	session, err := h.repo.DebateSession(r.Context(), sessionID)
	if err != nil {
		Fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": session.ChatHistory,
	})
}

// HandleDebateHistoryStrict handles GET /api/debate-history, the older
// variant that 404s instead of creating a session.
func (h *Handler) HandleDebateHistoryStrict(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		Fail(w, http.StatusBadRequest, "缺少sessionId")
		return
	}
	session, ok, err := h.repo.LookupDebateSession(r.Context(), sessionID)
	if err != nil {
		Fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		Fail(w, http.StatusNotFound, "辩论会话不存在")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"history": session.ChatHistory,
	})
}
