package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/debate"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/stream"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

// HandleStreamInit handles POST /api/debate/stream/init: validates the
// request, stores a job record, and hands back the opaque stream id.
func (h *Handler) HandleStreamInit(w http.ResponseWriter, r *http.Request) {
	var req debateRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.orch.Validate(req.AgentTitles); err != nil {
		Fail(w, http.StatusBadRequest, err.Error())
		return
	}

	streamID := h.registry.Init(stream.Job{
		AgentTitles: req.AgentTitles,
		Message:     req.Message,
		FileIDs:     req.FileIDs,
		SessionID:   req.sessionID(),
		Reset:       req.ResetConversation,
	})
	slog.Info("stream job initialized", "stream_id", streamID, "session_id", req.sessionID())
	JSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"streamId": streamID,
		"message":  "流式辩论会话已初始化",
	})
}

// HandleStream handles GET /api/debate/stream/{streamId}: claims the job
// and relays the debate's events over SSE. The job record is deleted when
// the stream ends, for any reason.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "streamId")
	job, err := h.registry.Claim(streamID)
	if err != nil {
		if errors.Is(err, stream.ErrNotFound) {
			Fail(w, http.StatusNotFound, fmt.Sprintf("未找到流式辩论会话: %s", streamID))
			return
		}
		Fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer h.registry.Delete(streamID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		Fail(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	slog.Info("stream opened", "stream_id", streamID, "session_id", job.SessionID, "agents", job.AgentTitles)

	req := debate.RunRequest{
		Message:     job.Message,
		AgentTitles: job.AgentTitles,
		FileIDs:     job.FileIDs,
		SessionID:   job.SessionID,
		Reset:       job.Reset,
	}
	for ev := range h.orch.Run(r.Context(), req) {
		if err := writeSSE(w, ev); err != nil {
			slog.Debug("stream write failed, consumer gone", "stream_id", streamID, "error", err)
			return
		}
		flusher.Flush()
	}
}

// HandleStreamLegacy handles POST /api/debate/stream, the older one-shot
// SSE route with no init handshake. Validation failures are emitted as
// error events because SSE headers are already committed.
func (h *Handler) HandleStreamLegacy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		Fail(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var req debateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.emitStreamError(w, flusher, "invalid request body")
		return
	}
	if err := h.orch.Validate(req.AgentTitles); err != nil {
		h.emitStreamError(w, flusher, err.Error())
		return
	}

	for ev := range h.orch.Run(r.Context(), req.runRequest()) {
		if err := writeSSE(w, ev); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (h *Handler) emitStreamError(w io.Writer, flusher http.Flusher, message string) {
	if err := writeSSE(w, debate.ErrorEvent{Type: "error", Error: message}); err != nil {
		slog.Debug("failed to write SSE error event", "error", err)
		return
	}
	flusher.Flush()
}

// writeSSE writes one event as a data-only SSE frame, matching the
// EventSource onmessage consumption on the client.
func writeSSE(w io.Writer, ev debate.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

// HandleStreamWS handles GET /ws/debate/{streamId}: the same event sequence
// as the SSE open, relayed over a websocket for consumers that prefer it.
func (h *Handler) HandleStreamWS(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "streamId")
	job, err := h.registry.Claim(streamID)
	if err != nil {
		Fail(w, http.StatusNotFound, fmt.Sprintf("未找到流式辩论会话: %s", streamID))
		return
	}
	defer h.registry.Delete(streamID)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "stream_id", streamID, "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "debate ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "stream_id", streamID, "error", closeErr)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	slog.Info("websocket stream opened", "stream_id", streamID, "session_id", job.SessionID)

	req := debate.RunRequest{
		Message:     job.Message,
		AgentTitles: job.AgentTitles,
		FileIDs:     job.FileIDs,
		SessionID:   job.SessionID,
		Reset:       job.Reset,
	}
	for ev := range h.orch.Run(ctx, req) {
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Warn("failed to marshal stream event", "stream_id", streamID, "error", err)
			return
		}
		if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
			slog.Debug("websocket write failed, consumer gone", "stream_id", streamID, "error", err)
			cancel()
			return
		}
	}
}
