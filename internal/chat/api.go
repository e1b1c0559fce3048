package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// User is a chat-platform profile.
type User struct {
	ID       string
	Name     string
	RealName string
	Email    string
}

type Config struct {
	APIURL          string
	Token           string
	FallbackChannel string
	Timeout         time.Duration
}

// Client is the REST side of the platform: message sends, DM opening,
// and the user directory.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

type apiResult struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error"`
	Raw   json.RawMessage `json:"-"`
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}
	endpoint := strings.TrimRight(c.cfg.APIURL, "/") + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", method, err)
	}
	var result apiResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if !result.OK {
		return nil, fmt.Errorf("%s failed: %s", method, firstNonEmpty(result.Error, "unknown_error"))
	}
	return respBody, nil
}

// PostMessage sends a text reply into a channel.
func (c *Client) PostMessage(ctx context.Context, channel, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := c.call(ctx, "chat.postMessage", map[string]string{
		"channel": channel,
		"text":    text,
	})
	return err
}

// NotifyUser delivers a direct message, falling back to an in-channel
// mention when direct delivery is rejected. The fallback is a required
// contract, not a nicety: without it a locked-down DM permission makes
// reminders vanish.
func (c *Client) NotifyUser(ctx context.Context, userID, text string) error {
	dmErr := c.directMessage(ctx, userID, text)
	if dmErr == nil {
		return nil
	}
	fallback := strings.TrimSpace(c.cfg.FallbackChannel)
	if fallback == "" {
		return dmErr
	}
	c.logger.Warn("direct message rejected, falling back to channel mention", "user_id", userID, "error", dmErr)
	if err := c.PostMessage(ctx, fallback, fmt.Sprintf("<@%s> %s", userID, text)); err != nil {
		return fmt.Errorf("dm failed (%v) and channel fallback failed: %w", dmErr, err)
	}
	return nil
}

func (c *Client) directMessage(ctx context.Context, userID, text string) error {
	raw, err := c.call(ctx, "conversations.open", map[string]string{"users": userID})
	if err != nil {
		return err
	}
	var opened struct {
		Channel struct {
			ID string `json:"id"`
		} `json:"channel"`
	}
	if err := json.Unmarshal(raw, &opened); err != nil {
		return fmt.Errorf("decode conversations.open response: %w", err)
	}
	if strings.TrimSpace(opened.Channel.ID) == "" {
		return fmt.Errorf("conversations.open returned no channel")
	}
	return c.PostMessage(ctx, opened.Channel.ID, text)
}

type userPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	RealName string `json:"real_name"`
	Profile  struct {
		RealName string `json:"real_name"`
		Email    string `json:"email"`
	} `json:"profile"`
}

func (p userPayload) toUser() User {
	return User{
		ID:       p.ID,
		Name:     p.Name,
		RealName: firstNonEmpty(p.RealName, p.Profile.RealName),
		Email:    p.Profile.Email,
	}
}

// UserInfo fetches one platform profile.
func (c *Client) UserInfo(ctx context.Context, userID string) (User, error) {
	raw, err := c.call(ctx, "users.info", map[string]string{"user": userID})
	if err != nil {
		return User{}, err
	}
	var parsed struct {
		User userPayload `json:"user"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return User{}, fmt.Errorf("decode users.info response: %w", err)
	}
	return parsed.User.toUser(), nil
}

// ListUsers pages through the platform's full user directory.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	cursor := ""
	for {
		payload := map[string]string{"limit": "200"}
		if cursor != "" {
			payload["cursor"] = cursor
		}
		raw, err := c.call(ctx, "users.list", payload)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Members          []userPayload `json:"members"`
			ResponseMetadata struct {
				NextCursor string `json:"next_cursor"`
			} `json:"response_metadata"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("decode users.list response: %w", err)
		}
		for _, member := range parsed.Members {
			users = append(users, member.toUser())
		}
		cursor = strings.TrimSpace(parsed.ResponseMetadata.NextCursor)
		if cursor == "" {
			return users, nil
		}
	}
}

// connectionURL asks the platform for a fresh websocket endpoint.
func (c *Client) connectionURL(ctx context.Context) (string, error) {
	raw, err := c.call(ctx, "connections.open", map[string]string{})
	if err != nil {
		return "", err
	}
	var parsed struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode connections.open response: %w", err)
	}
	if strings.TrimSpace(parsed.URL) == "" {
		return "", fmt.Errorf("connections.open returned no url")
	}
	return parsed.URL, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
