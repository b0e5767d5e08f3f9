package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Client calls the Telegram Bot API. Safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewClient builds a Client for the given API base URL (without the /bot
// prefix) and bot token. httpClient may be nil; long-poll calls manage
// their own deadlines, so no global timeout is set on the default client.
func NewClient(httpClient *http.Client, baseURL, token string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

func (c *Client) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// RequestError is a Bot API failure with the HTTP status and the API's
// error description when one was returned.
type RequestError struct {
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *RequestError) Error() string {
	if desc := strings.TrimSpace(e.Description); desc != "" {
		return fmt.Sprintf("telegram http %d: %s", e.StatusCode, desc)
	}
	return fmt.Sprintf("telegram http %d", e.StatusCode)
}

// IsPollTimeout reports whether err is an expected long-poll expiry rather
// than a real transport failure, so callers can retry without logging noise.
func IsPollTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "client.timeout exceeded")
}

func decodeEnvelope(resp *http.Response, out interface{ envelope() *apiEnvelope }) error {
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err := json.Unmarshal(raw, out); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &RequestError{StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
		}
		return err
	}
	env := out.envelope()
	if !env.OK {
		return &RequestError{StatusCode: resp.StatusCode, ErrorCode: env.ErrorCode, Description: env.Description}
	}
	return nil
}

func (e *apiEnvelope) envelope() *apiEnvelope { return e }

func (c *Client) postJSON(ctx context.Context, method string, payload any, out interface{ envelope() *apiEnvelope }) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return decodeEnvelope(resp, out)
}

// GetMe returns the bot's own identity.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("getMe"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	var out getMeResponse
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// GetUpdates long-polls for updates at or after offset and returns them
// together with the next offset to acknowledge what was received. On error
// the passed offset is returned unchanged.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, int64, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	u := fmt.Sprintf("%s?timeout=%d&allowed_updates=%s", c.methodURL("getUpdates"), secs, url.QueryEscape(`["message"]`))
	if offset > 0 {
		u += "&offset=" + strconv.FormatInt(offset, 10)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, offset, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, offset, err
	}
	var out getUpdatesResponse
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, offset, err
	}

	next := offset
	for _, u := range out.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return out.Result, next, nil
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

// SendMessage sends plain text and returns the sent message's ID.
// replyToMessageID of 0 sends without a reply reference.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "…"
	}
	var out sendMessageResponse
	err := c.postJSON(ctx, "sendMessage", sendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: replyToMessageID,
	}, &out)
	if err != nil {
		return 0, err
	}
	return out.Result.MessageID, nil
}

type sendChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

// SendChatAction sets a transient status like "typing" or "upload_document".
// Failures are not fatal for the bot, so callers usually ignore the error.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	// The result here is a bare boolean, so only the envelope is decoded.
	var out boolResponse
	return c.postJSON(ctx, "sendChatAction", sendChatActionRequest{ChatID: chatID, Action: action}, &out)
}

// SendDocument uploads a local file as a document with an optional caption.
func (c *Client) SendDocument(ctx context.Context, chatID int64, path, caption string) (int64, error) {
	return c.sendFile(ctx, "sendDocument", "document", chatID, path, caption)
}

// SendAudio uploads a local file as an audio message.
func (c *Client) SendAudio(ctx context.Context, chatID int64, path, caption string) (int64, error) {
	return c.sendFile(ctx, "sendAudio", "audio", chatID, path, caption)
}

// SendVideo uploads a local file as a video message.
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string) (int64, error) {
	return c.sendFile(ctx, "sendVideo", "video", chatID, path, caption)
}

// sendFile streams a multipart upload through an io.Pipe so the file is
// never buffered whole in memory.
func (c *Client) sendFile(ctx context.Context, method, field string, chatID int64, path, caption string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		var werr error
		defer func() { pw.CloseWithError(werr) }()
		if werr = mw.WriteField("chat_id", strconv.FormatInt(chatID, 10)); werr != nil {
			return
		}
		if caption != "" {
			if werr = mw.WriteField("caption", caption); werr != nil {
				return
			}
		}
		part, err := mw.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			werr = err
			return
		}
		if _, werr = io.Copy(part, f); werr != nil {
			return
		}
		werr = mw.Close()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), pr)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	var out sendMessageResponse
	if err := decodeEnvelope(resp, &out); err != nil {
		return 0, err
	}
	return out.Result.MessageID, nil
}

// GetFile resolves a file_id into a server-side path for download.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, errors.New("telegram: missing file_id")
	}
	u := c.methodURL("getFile") + "?file_id=" + url.QueryEscape(fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	var out getFileResponse
	if err := decodeEnvelope(resp, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Result.FilePath) == "" {
		return nil, errors.New("telegram: getFile returned no file_path")
	}
	return &out.Result, nil
}

// DownloadFileTo fetches a file by its server-side path into dstPath with
// 0600 permissions, refusing anything larger than maxBytes.
func (c *Client) DownloadFileTo(ctx context.Context, filePath, dstPath string, maxBytes int64) (int64, error) {
	if strings.TrimSpace(filePath) == "" {
		return 0, errors.New("telegram: missing file_path")
	}
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}

	u := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, strings.TrimLeft(filePath, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, &RequestError{StatusCode: resp.StatusCode, Description: strings.TrimSpace(string(raw))}
	}

	f, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return n, err
	}
	if n > maxBytes {
		return n, fmt.Errorf("telegram: file exceeds %d bytes", maxBytes)
	}
	return n, f.Close()
}
