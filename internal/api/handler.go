// Package api provides HTTP handlers for the Artagent server.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/CMSchuyler/Artagent-2.0-3/internal/agents"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/config"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/coze"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/debate"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/store"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/stream"
	"github.com/go-chi/chi/v5"
)

// maxRequestBodySize is the maximum allowed JSON request body (1MB).
const maxRequestBodySize = 1 << 20

// PlatformClient is the slice of the chat platform client the handlers use.
type PlatformClient interface {
	debate.Conversationalist
	UploadFile(ctx context.Context, r io.Reader, filename string) (*coze.FileInfo, error)
}

// Handler serves the chat, debate, and streaming routes.
type Handler struct {
	repo     store.Repository
	catalog  *agents.Catalog
	orch     *debate.Orchestrator
	registry *stream.Registry
	platform PlatformClient
	cfg      *config.Config
	started  time.Time
}

// NewHandler creates a Handler with its dependencies.
func NewHandler(repo store.Repository, catalog *agents.Catalog, orch *debate.Orchestrator, registry *stream.Registry, platform PlatformClient, cfg *config.Config) *Handler {
	return &Handler{
		repo:     repo,
		catalog:  catalog,
		orch:     orch,
		registry: registry,
		platform: platform,
		cfg:      cfg,
		started:  time.Now(),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", h.HandleUpload)
		r.Post("/chat", h.HandleChat)
		r.Get("/history", h.HandleChatHistory)
		r.Post("/dialogue", h.HandleDialogue)

		r.Post("/debate", h.HandleDebate)
		r.Post("/debate/reset", h.HandleDebateReset)
		r.Get("/debate/history", h.HandleDebateHistory)
		r.Get("/debate-history", h.HandleDebateHistoryStrict)

		r.Post("/debate/stream/init", h.HandleStreamInit)
		r.Post("/debate/stream", h.HandleStreamLegacy)
		r.Get("/debate/stream/{streamId}", h.HandleStream)

		r.Get("/health", h.HandleHealth)
	})
	r.Get("/ws/debate/{streamId}", h.HandleStreamWS)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Fail writes the {success: false, error: ...} shape the frontend expects.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]interface{}{"success": false, "error": message})
}

// decode reads a bounded JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// debateRequest is the shared request body of the debate endpoints.
type debateRequest struct {
	AgentTitles       []string `json:"agentTitles"`
	Message           string   `json:"message"`
	FileIDs           []string `json:"fileIds"`
	SessionID         string   `json:"sessionId"`
	ResetConversation bool     `json:"resetConversation"`
}

func (d *debateRequest) sessionID() string {
	if d.SessionID == "" {
		return "default"
	}
	return d.SessionID
}

func (d *debateRequest) runRequest() debate.RunRequest {
	return debate.RunRequest{
		Message:     d.Message,
		AgentTitles: d.AgentTitles,
		FileIDs:     d.FileIDs,
		SessionID:   d.sessionID(),
		Reset:       d.ResetConversation,
	}
}

// HandleHealth handles GET /api/health.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
	})
}
