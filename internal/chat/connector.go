package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// dedupWindow is how long an event key stays remembered. The event
// socket redelivers on slow acks and across reconnects, and a replayed
// message must not trigger the same board write twice.
const dedupWindow = 5 * time.Minute

// Message is one inbound conversational message, already filtered down
// to plain human traffic.
type Message struct {
	Channel   string
	UserID    string
	Text      string
	Timestamp string
}

// Handler consumes inbound messages. Replies go back out through the
// Client; the connector itself never writes responses.
type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
}

// Connector maintains the event-socket session and feeds deduplicated
// messages to the handler.
type Connector struct {
	client  *Client
	handler Handler
	logger  *slog.Logger
	seen    *expirable.LRU[string, struct{}]
}

func NewConnector(client *Client, handler Handler, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		client:  client,
		handler: handler,
		logger:  logger,
		seen:    expirable.NewLRU[string, struct{}](4096, nil, dedupWindow),
	}
}

func (c *Connector) Start(ctx context.Context) error {
	if strings.TrimSpace(c.client.cfg.Token) == "" {
		c.logger.Info("connector disabled, token missing")
		<-ctx.Done()
		return nil
	}
	c.logger.Info("connector started", "mode", "event-socket")
	for {
		if ctx.Err() != nil {
			c.logger.Info("connector stopped")
			return nil
		}
		if err := c.runSession(ctx); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("connector stopped")
				return nil
			}
			c.logger.Error("event socket session ended, reconnecting", "error", err)
			select {
			case <-ctx.Done():
				c.logger.Info("connector stopped")
				return nil
			case <-time.After(2 * time.Second):
			}
		}
	}
}

type socketEnvelope struct {
	Type       string          `json:"type"`
	EnvelopeID string          `json:"envelope_id"`
	Payload    json.RawMessage `json:"payload"`
	Reason     string          `json:"reason"`
}

type eventPayload struct {
	Event struct {
		Type    string `json:"type"`
		Subtype string `json:"subtype"`
		BotID   string `json:"bot_id"`
		User    string `json:"user"`
		Channel string `json:"channel"`
		Text    string `json:"text"`
		TS      string `json:"ts"`
	} `json:"event"`
}

func (c *Connector) runSession(ctx context.Context) error {
	socketURL, err := c.client.connectionURL(ctx)
	if err != nil {
		return fmt.Errorf("open event socket: %w", err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return fmt.Errorf("dial event socket: %w", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read socket message: %w", err)
		}
		var envelope socketEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			c.logger.Error("decode socket envelope failed", "error", err)
			continue
		}

		switch envelope.Type {
		case "hello":
			c.logger.Info("event socket established")
		case "disconnect":
			return fmt.Errorf("socket requested reconnect: %s", envelope.Reason)
		case "events_api":
			if err := c.acknowledge(conn, &writeMu, envelope.EnvelopeID); err != nil {
				return err
			}
			c.handleEvent(ctx, envelope.Payload)
		}
	}
}

func (c *Connector) acknowledge(conn *websocket.Conn, writeMu *sync.Mutex, envelopeID string) error {
	if envelopeID == "" {
		return nil
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := conn.WriteJSON(map[string]string{"envelope_id": envelopeID}); err != nil {
		return fmt.Errorf("acknowledge envelope: %w", err)
	}
	return nil
}

func (c *Connector) handleEvent(ctx context.Context, payload json.RawMessage) {
	var parsed eventPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		c.logger.Error("decode event payload failed", "error", err)
		return
	}
	event := parsed.Event
	if event.Type != "message" {
		return
	}
	// Bot echoes and edits/joins/deletes are not conversational input.
	if event.BotID != "" || event.Subtype != "" {
		return
	}
	if strings.TrimSpace(event.Text) == "" || event.User == "" {
		return
	}
	key := event.Channel + "/" + event.TS
	if _, dup := c.seen.Get(key); dup {
		c.logger.Debug("duplicate event skipped", "key", key)
		return
	}
	c.seen.Add(key, struct{}{})

	// Each message is its own unit of work. Handling stays off the read
	// loop so a slow remote call stalls only this message, not the
	// socket's acks and later envelopes.
	msg := Message{
		Channel:   event.Channel,
		UserID:    event.User,
		Text:      event.Text,
		Timestamp: event.TS,
	}
	go c.handler.HandleMessage(ctx, msg)
}
