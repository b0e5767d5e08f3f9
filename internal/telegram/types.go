// Package telegram is a minimal Bot API client covering exactly what the
// bot needs: identity lookup, long-poll updates, text and file sends, and
// document downloads. It talks plain HTTP to api.telegram.org (or a
// self-hosted Bot API server) with no SDK in between.
package telegram

// Update is one long-poll result. Only message updates are consumed; edits
// and channel posts are ignored by the dispatcher.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message is the subset of the Bot API message object the bot reads.
type Message struct {
	MessageID int64     `json:"message_id"`
	Date      int64     `json:"date,omitempty"`
	Chat      *Chat     `json:"chat,omitempty"`
	From      *User     `json:"from,omitempty"`
	ReplyTo   *Message  `json:"reply_to_message,omitempty"`
	Text      string    `json:"text,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Document  *Document `json:"document,omitempty"`
}

// Chat identifies where a message came from.
type Chat struct {
	ID    int64  `json:"id"`
	Type  string `json:"type,omitempty"` // private|group|supergroup|channel
	Title string `json:"title,omitempty"`
}

// User identifies a message author.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// Document is an attached file reference.
type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// File is the getFile result used to build a download URL.
type File struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size,omitempty"`
	FilePath string `json:"file_path,omitempty"`
}

type apiEnvelope struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type getMeResponse struct {
	apiEnvelope
	Result User `json:"result"`
}

type getUpdatesResponse struct {
	apiEnvelope
	Result []Update `json:"result"`
}

type sendMessageResponse struct {
	apiEnvelope
	Result Message `json:"result"`
}

type getFileResponse struct {
	apiEnvelope
	Result File `json:"result"`
}

type boolResponse struct {
	apiEnvelope
	Result bool `json:"result"`
}
