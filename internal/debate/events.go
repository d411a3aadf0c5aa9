package debate

// Event is one step of a debate turn. The same event sequence feeds both
// the batch endpoint (which drains it) and the stream endpoints (which relay
// each event to the consumer as it happens).
type Event interface {
	eventType() string
}

// OrderEvent announces the speaking order before any remote call is made.
type OrderEvent struct {
	Type          string             `json:"type"`
	OrderedAgents []string           `json:"orderedAgents"`
	Similarities  map[string]float64 `json:"similarities"`
}

func (OrderEvent) eventType() string { return "order" }

// ResponseEvent carries one agent's reply, or its bracketed error marker
// when the agent's turn failed.
type ResponseEvent struct {
	Type       string  `json:"type"`
	AgentTitle string  `json:"agentTitle"`
	Response   string  `json:"response"`
	Similarity float64 `json:"similarity"`
	IsComplete bool    `json:"isComplete"`
	IsError    bool    `json:"isError,omitempty"`
	Index      int     `json:"index"`
}

func (ResponseEvent) eventType() string { return "response" }

// CompleteEvent is the terminal aggregate for a finished debate turn.
type CompleteEvent struct {
	Type           string             `json:"type"`
	Responses      map[string]string  `json:"responses"`
	Similarities   map[string]float64 `json:"similarities"`
	OrderedAgents  []string           `json:"orderedAgents"`
	ConversationID string             `json:"conversationId"`
}

func (CompleteEvent) eventType() string { return "complete" }

// ErrorEvent is the terminal event for a turn that failed as a whole.
// Per-agent failures are ResponseEvents with IsError set, never this.
type ErrorEvent struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (ErrorEvent) eventType() string { return "error" }
