// Package domain defines the session state shared by the chat and debate
// flows. Everything here is plain data; lifecycle rules live in the store.
package domain

// AgentConversation tracks one agent's remote conversation inside a
// single-agent chat session.
type AgentConversation struct {
	ConversationID string `json:"conversationId"`
	LastChatID     string `json:"lastChatId"`
	LastBotID      string `json:"lastBotId"`
}

// ChatEntry is one exchange in a single-agent chat history.
type ChatEntry struct {
	ChatID      string `json:"id"`
	UserMessage string `json:"userMessage"`
	AgentTitle  string `json:"agentTitle"`
	AgentReply  string `json:"agentReply"`
	Timestamp   int64  `json:"timestamp"`
}

// Session is the per-sessionId state for single-agent chat. Each agent keeps
// its own remote conversation handle.
type Session struct {
	UserID             string                        `json:"userId"`
	ChatHistory        []ChatEntry                   `json:"chatHistory"`
	AgentConversations map[string]*AgentConversation `json:"agentConversations"`
}

// Conversation returns the agent's conversation state, creating it when
// absent or when reset is requested.
func (s *Session) Conversation(agentTitle, botID string, reset bool) *AgentConversation {
	if s.AgentConversations == nil {
		s.AgentConversations = make(map[string]*AgentConversation)
	}
	if reset || s.AgentConversations[agentTitle] == nil {
		s.AgentConversations[agentTitle] = &AgentConversation{LastBotID: botID}
	}
	return s.AgentConversations[agentTitle]
}

// Clone returns a deep copy so store implementations can hand out
// value-semantics snapshots.
func (s *Session) Clone() *Session {
	out := &Session{
		UserID:             s.UserID,
		ChatHistory:        append([]ChatEntry(nil), s.ChatHistory...),
		AgentConversations: make(map[string]*AgentConversation, len(s.AgentConversations)),
	}
	for title, conv := range s.AgentConversations {
		copied := *conv
		out.AgentConversations[title] = &copied
	}
	return out
}

// DebateEntry is one full debate turn in a debate history.
type DebateEntry struct {
	UserMessage    string             `json:"userMessage"`
	AgentResponses map[string]string  `json:"agentResponses"`
	Similarities   map[string]float64 `json:"similarities"`
	Timestamp      int64              `json:"timestamp"`
}

// DebateSession is the per-sessionId state for multi-agent debates. All
// agents in a debate share one remote conversation thread; this mirrors the
// upstream behavior and is intentional.
type DebateSession struct {
	UserID         string            `json:"userId"`
	ConversationID string            `json:"conversationId"`
	AgentLastChats map[string]string `json:"agentLastChats"`
	ChatHistory    []DebateEntry     `json:"chatHistory"`
}

// Reset drops the shared remote conversation and per-agent turn history so
// the next debate turn starts a fresh remote thread. Chat history is kept.
func (s *DebateSession) Reset() {
	s.ConversationID = ""
	s.AgentLastChats = make(map[string]string)
}

// Clone returns a deep copy of the debate session.
func (s *DebateSession) Clone() *DebateSession {
	out := &DebateSession{
		UserID:         s.UserID,
		ConversationID: s.ConversationID,
		AgentLastChats: make(map[string]string, len(s.AgentLastChats)),
		ChatHistory:    make([]DebateEntry, len(s.ChatHistory)),
	}
	for k, v := range s.AgentLastChats {
		out.AgentLastChats[k] = v
	}
	for i, e := range s.ChatHistory {
		copied := e
		copied.AgentResponses = copyStringMap(e.AgentResponses)
		copied.Similarities = copyFloatMap(e.Similarities)
		out.ChatHistory[i] = copied
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
