// Package logclient talks to the HTTP API on behalf of a drawing client:
// it fetches room history and mutates individual log entries.
package logclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/sketchroom/schema"
)

// Client is a thin, token-authenticated HTTP client for the chatlog API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     pslog.Logger
}

// New constructs a client for the API at baseURL using the given bearer
// token.
func New(baseURL, token string, logger pslog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("missing base url")
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// FetchRoomLog returns a room's persisted log in append order (oldest
// first). The API serves entries newest first; the order is flipped here so
// replaying the slice reproduces the original z-order.
func (c *Client) FetchRoomLog(ctx context.Context, roomID schema.RoomID) ([]schema.ChatEntry, error) {
	var response schema.ChatsResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/chats/%d", roomID), nil, &response); err != nil {
		return nil, err
	}
	entries := response.Messages
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// DeleteEntry removes one log entry by durable id.
func (c *Client) DeleteEntry(ctx context.Context, chatID schema.ChatID) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/chat/%d", chatID), nil, nil)
}

// UpdateEntry replaces one log entry's payload wholesale.
func (c *Client) UpdateEntry(ctx context.Context, chatID schema.ChatID, message string) error {
	body := schema.UpdateChatRequest{Message: message}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/chat/%d", chatID), body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
