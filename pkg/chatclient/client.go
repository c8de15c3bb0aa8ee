// Package chatclient is a Go client for the chat HTTP API and a polling
// Syncer that keeps a conversation sidebar and one active thread current.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"journal_chat/internal/domain"
	apperrors "journal_chat/pkg/errors"
)

const (
	DefaultMaxRetries = 3
	DefaultTimeout    = 10 * time.Second
)

// SendRequest is the body of POST /messages.
type SendRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	domain.MessageDraft
	domain.Reply
	ForwardedFromUserID string `json:"forwardedFromUserId,omitempty"`
}

type ShareOutcome struct {
	RecipientID string `json:"recipientId"`
	MessageID   string `json:"messageId,omitempty"`
	Error       string `json:"error,omitempty"`
}

type ShareResult struct {
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
	Results   []ShareOutcome `json:"results"`
}

// ForwardTarget names the destination either as a participant pair or as
// a conversation id.
type ForwardTarget struct {
	Participants         []string `json:"participants,omitempty"`
	TargetConversationID string   `json:"targetConversationId,omitempty"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	newKey     func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries bounds the retries of reads and sends; 0 disables retrying.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRetryRate paces retry attempts.
func WithRetryRate(every time.Duration, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Every(every), burst) }
}

// NewClient builds a client for an API rooted at baseURL, e.g.
// "http://localhost:8080/api/chat".
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		maxRetries: DefaultMaxRetries,
		newKey:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Cursor pages history backwards. Messages at or after it are excluded;
// MessageID is optional and breaks ties within Timestamp.
type Cursor struct {
	Timestamp time.Time
	MessageID string
}

// CursorAt continues paging from just before m.
func CursorAt(m domain.Message) *Cursor {
	return &Cursor{Timestamp: m.Timestamp, MessageID: m.ID}
}

func (c *Client) History(ctx context.Context, userA, userB string, limit int, before *Cursor) ([]domain.Message, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if before != nil {
		query.Set("before", before.Timestamp.UTC().Format(time.RFC3339Nano))
		if before.MessageID != "" {
			query.Set("beforeId", before.MessageID)
		}
	}

	path := "/history/" + url.PathEscape(userA) + "/" + url.PathEscape(userB)
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var messages []domain.Message
	if err := c.do(ctx, http.MethodGet, path, nil, nil, true, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) Conversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(userID), nil, nil, true, &conversations); err != nil {
		return nil, err
	}
	return conversations, nil
}

// Send posts a message under a fresh Idempotency-Key. Retries reuse the key,
// so a send is stored at most once.
func (c *Client) Send(ctx context.Context, req SendRequest) (*domain.Message, error) {
	headers := map[string]string{"Idempotency-Key": c.newKey()}

	var message domain.Message
	if err := c.do(ctx, http.MethodPost, "/messages", req, headers, true, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// MarkRead marks messages from senderID to receiverID as read and returns
// how many changed.
func (c *Client) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	var resp struct {
		Success bool  `json:"success"`
		Updated int64 `json:"updated"`
	}
	body := map[string]string{"senderId": senderID, "receiverId": receiverID}
	if err := c.do(ctx, http.MethodPost, "/messages/read", body, nil, true, &resp); err != nil {
		return 0, err
	}
	return resp.Updated, nil
}

func (c *Client) Edit(ctx context.Context, messageID, text string) (*domain.Message, error) {
	var message domain.Message
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/edit", body, nil, false, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) Delete(ctx context.Context, messageID string) (*domain.Message, error) {
	var message domain.Message
	if err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/delete", nil, nil, true, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) Forward(ctx context.Context, messageID string, target ForwardTarget) (*domain.Message, error) {
	var message domain.Message
	if err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(messageID)+"/forward", target, nil, false, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) Share(ctx context.Context, recipientIDs []string, draft domain.MessageDraft) (*ShareResult, error) {
	body := struct {
		RecipientIDs []string `json:"recipientIds"`
		domain.MessageDraft
	}{RecipientIDs: recipientIDs, MessageDraft: draft}

	var result ShareResult
	if err := c.do(ctx, http.MethodPost, "/messages/share", body, nil, false, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Settings(ctx context.Context) (*domain.ChatSettings, error) {
	var settings domain.ChatSettings
	if err := c.do(ctx, http.MethodGet, "/settings/me", nil, nil, true, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// do runs one API call. Transport failures and 5xx responses are retried
// up to maxRetries times when retryable is set; 4xx responses never are.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string, retryable bool, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if retryable {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
		}

		status, err := c.roundTrip(ctx, method, path, payload, headers, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return err
		}
		if status != 0 && status < http.StatusInternalServerError {
			return err
		}
	}
	return lastErr
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte, headers map[string]string, out interface{}) (int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(bodyBytes, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(string(bodyBytes))
		}
		return resp.StatusCode, apperrors.FromHTTPStatus(resp.StatusCode, apiErr.Error)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}
