package coze

import "encoding/json"

// SendParams describes one turn to submit to a bot.
type SendParams struct {
	BotID          string
	UserID         string
	Message        string
	FileIDs        []string
	ConversationID string // empty starts a fresh remote conversation
	MaxPolls       int
}

// TurnResult is the outcome of a completed turn.
type TurnResult struct {
	ChatID         string
	ConversationID string
	Reply          string
}

// FileInfo describes an uploaded platform file.
type FileInfo struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Bytes    int64  `json:"bytes"`
}

// contentItem is one element of the object_string message payload.
type contentItem struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

// buildContent serializes the text plus image-reference items the platform
// expects as the message content.
func buildContent(message string, fileIDs []string) (string, error) {
	items := []contentItem{{Type: "text", Text: message}}
	for _, id := range fileIDs {
		if id == "" {
			continue
		}
		items = append(items, contentItem{Type: "image", FileID: id})
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type additionalMessage struct {
	Role        string `json:"role"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

type submitRequest struct {
	BotID              string              `json:"bot_id"`
	UserID             string              `json:"user_id"`
	AdditionalMessages []additionalMessage `json:"additional_messages"`
	AutoSaveHistory    bool                `json:"auto_save_history"`
}

type chatData struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
}

type chatEnvelope struct {
	Code int      `json:"code"`
	Msg  string   `json:"msg"`
	Data chatData `json:"data"`
}

type turnMessage struct {
	Role    string `json:"role"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

type messageListEnvelope struct {
	Code int           `json:"code"`
	Msg  string        `json:"msg"`
	Data []turnMessage `json:"data"`
}

type fileEnvelope struct {
	Code int      `json:"code"`
	Msg  string   `json:"msg"`
	Data FileInfo `json:"data"`
}
