package board

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

const defaultRetryBackoff = 30 * time.Second

// maxAttempts bounds the transient-failure retry: one initial call plus
// exactly one retry after a fixed backoff.
const maxAttempts = 2

// Auditor receives a structured trace of every board mutation. Reads are
// not audited.
type Auditor interface {
	RecordWrite(ctx context.Context, entry WriteEntry)
}

// WriteEntry captures enough detail about one mutation for after-the-fact
// diagnosis.
type WriteEntry struct {
	Operation string
	RecordID  string
	Payload   string
	Response  string
	Err       string
}

type Config struct {
	APIURL   string
	Token    string
	BoardID  string
	Timeout  time.Duration
	Location *time.Location
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	audit      Auditor

	// retryBackoff is the fixed sleep between the two attempts.
	// Overridable for tests.
	retryBackoff time.Duration
}

func New(cfg Config, audit Auditor, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
		audit:        audit,
		retryBackoff: defaultRetryBackoff,
	}
}

type apiError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type apiResponse struct {
	Data      json.RawMessage `json:"data"`
	Errors    []apiError      `json:"errors"`
	ErrorCode string          `json:"error_code"`
}

// ListRecords fetches the full board, following continuation cursors
// until exhausted. Callers never see a partial page set.
func (c *Client) ListRecords(ctx context.Context) ([]Record, error) {
	const query = `query ($boardID: ID!, $cursor: String) {
		boards(ids: [$boardID]) {
			items_page(limit: 100, cursor: $cursor) {
				cursor
				items { id name url column_values { id type text value } }
			}
		}
	}`

	var records []Record
	cursor := ""
	for {
		variables := map[string]any{"boardID": c.cfg.BoardID}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		data, err := c.execute(ctx, "list_records", false, query, variables)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Boards []struct {
				ItemsPage struct {
					Cursor string        `json:"cursor"`
					Items  []itemPayload `json:"items"`
				} `json:"items_page"`
			} `json:"boards"`
		}
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("decode items page: %w", err)
		}
		if len(payload.Boards) == 0 {
			return records, nil
		}
		page := payload.Boards[0].ItemsPage
		for _, item := range page.Items {
			records = append(records, decodeItem(item, c.cfg.Location))
		}
		cursor = strings.TrimSpace(page.Cursor)
		if cursor == "" {
			return records, nil
		}
	}
}

// SetColumns applies a multi-field mutation to one record.
func (c *Client) SetColumns(ctx context.Context, recordID string, values map[string]any) error {
	const query = `mutation ($boardID: ID!, $itemID: ID!, $values: JSON!) {
		change_multiple_column_values(board_id: $boardID, item_id: $itemID, column_values: $values) { id }
	}`
	encoded, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode column values: %w", err)
	}
	_, err = c.executeWrite(ctx, "set_columns", recordID, query, map[string]any{
		"boardID": c.cfg.BoardID,
		"itemID":  recordID,
		"values":  string(encoded),
	})
	return err
}

// SetName renames a record, used for applying and clearing the cold marker.
func (c *Client) SetName(ctx context.Context, recordID, name string) error {
	const query = `mutation ($boardID: ID!, $itemID: ID!, $name: String!) {
		change_simple_column_value(board_id: $boardID, item_id: $itemID, column_id: "name", value: $name) { id }
	}`
	_, err := c.executeWrite(ctx, "set_name", recordID, query, map[string]any{
		"boardID": c.cfg.BoardID,
		"itemID":  recordID,
		"name":    name,
	})
	return err
}

// CreateRecord adds a new record and returns its assigned id.
func (c *Client) CreateRecord(ctx context.Context, name string, values map[string]any) (string, error) {
	const query = `mutation ($boardID: ID!, $name: String!, $values: JSON) {
		create_item(board_id: $boardID, item_name: $name, column_values: $values) { id }
	}`
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode column values: %w", err)
	}
	data, err := c.executeWrite(ctx, "create_record", "", query, map[string]any{
		"boardID": c.cfg.BoardID,
		"name":    name,
		"values":  string(encoded),
	})
	if err != nil {
		return "", err
	}
	var payload struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	return payload.CreateItem.ID, nil
}

// MoveRecord moves a record to another group on the board.
func (c *Client) MoveRecord(ctx context.Context, recordID, groupID string) error {
	const query = `mutation ($itemID: ID!, $groupID: String!) {
		move_item_to_group(item_id: $itemID, group_id: $groupID) { id }
	}`
	_, err := c.executeWrite(ctx, "move_record", recordID, query, map[string]any{
		"itemID":  recordID,
		"groupID": groupID,
	})
	return err
}

// DeleteRecord removes a record from the board.
func (c *Client) DeleteRecord(ctx context.Context, recordID string) error {
	const query = `mutation ($itemID: ID!) {
		delete_item(item_id: $itemID) { id }
	}`
	_, err := c.executeWrite(ctx, "delete_record", recordID, query, map[string]any{
		"itemID": recordID,
	})
	return err
}

func (c *Client) executeWrite(ctx context.Context, operation, recordID, query string, variables map[string]any) (json.RawMessage, error) {
	payload, _ := json.Marshal(variables)
	data, err := c.execute(ctx, operation, true, query, variables)
	entry := WriteEntry{
		Operation: operation,
		RecordID:  recordID,
		Payload:   string(payload),
		Response:  string(data),
	}
	if err != nil {
		entry.Err = err.Error()
	}
	if c.audit != nil {
		c.audit.RecordWrite(ctx, entry)
	}
	return data, err
}

func (c *Client) execute(ctx context.Context, operation string, mutation bool, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal board request: %w", err)
	}

	kind := "query"
	if mutation {
		kind = "mutation"
	}

	for attempt := 1; ; attempt++ {
		data, transient, err := c.attempt(ctx, body)
		if err == nil {
			return data, nil
		}
		if !transient {
			return nil, fmt.Errorf("board %s %s: %w", kind, operation, err)
		}
		if attempt >= maxAttempts {
			return nil, fmt.Errorf("board %s %s: %w: %v", kind, operation, ErrUnavailable, err)
		}
		c.logger.Warn("board call rate limited, backing off",
			"operation", operation, "kind", kind, "backoff", c.retryBackoff.String(), "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.retryBackoff):
		}
	}
}

// attempt performs one HTTP round trip. The second return value reports
// whether the failure is transient (rate limit or server side) and
// therefore eligible for the single retry.
func (c *Client) attempt(ctx context.Context, body []byte) (json.RawMessage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Authorization", c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	// Only 429/5xx and embedded rate-limit codes earn the retry. A
	// connection-level failure is not retried: the request may have
	// reached the board, and a blind resend would double-apply a
	// mutation.
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer res.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return nil, false, err
	}
	if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
		return nil, true, fmt.Errorf("status %d: %s", res.StatusCode, compact(respBody))
	}
	if res.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("status %d: %s", res.StatusCode, compact(respBody))
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, false, fmt.Errorf("decode board response: %w", err)
	}
	if code := strings.TrimSpace(parsed.ErrorCode); code != "" {
		return nil, isRateLimitCode(code), fmt.Errorf("error code %s", code)
	}
	if len(parsed.Errors) > 0 {
		first := parsed.Errors[0]
		return nil, isRateLimitCode(first.Extensions.Code), fmt.Errorf("%s", first.Message)
	}
	return parsed.Data, false, nil
}

func isRateLimitCode(code string) bool {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "RATE_LIMITED", "COMPLEXITY_BUDGET_EXHAUSTED", "COMPLEXITYEXCEPTION":
		return true
	default:
		return false
	}
}

func compact(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}
