package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lorrc/service-desk-analytics/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
	"github.com/lorrc/service-desk-analytics/internal/core/services"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	sendBuffer = 16
)

// Message types exchanged with the dashboard.
const (
	TypeSetFilters      = "SET_FILTERS"
	TypePing            = "PING"
	TypeMetrics         = "METRICS"
	TypeValidationError = "VALIDATION_ERROR"
	TypePong            = "PONG"
)

// ClientMessage is the structure for messages sent from the client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage is the structure for messages sent to the client. Seq is
// the filter change the message answers.
type ServerMessage struct {
	Type    string      `json:"type"`
	Seq     uint64      `json:"seq,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// ValidationErrorPayload explains why a filter change was rejected.
type ValidationErrorPayload struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Fields  map[string][]string    `json:"fields,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Client is one dashboard session: a websocket connection with its own
// debounced metrics pipeline.
type Client struct {
	ID      string
	Subject string

	hub       *Hub
	conn      *websocket.Conn
	send      chan ServerMessage
	debouncer *services.Debouncer
	cancel    context.CancelFunc

	// sendMu guards send against use after close
	sendMu     sync.Mutex
	sendClosed bool

	logger *slog.Logger
}

// Filter returns the last accepted filter, if the latest change was
// accepted.
func (c *Client) Filter() (domain.MetricsFilter, bool) {
	return c.debouncer.Last()
}

// enqueue queues msg without blocking. It reports false when the session
// is closed or its buffer is full.
func (c *Client) enqueue(msg ServerMessage) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("send buffer full, dropping message", "type", msg.Type, "seq", msg.Seq)
		return false
	}
}

// closeSend safely closes the send channel exactly once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// shutdown stops the session's computations. After it returns no result
// is delivered.
func (c *Client) shutdown() {
	c.debouncer.Close()
	c.cancel()
	c.closeSend()
}

// deliver is the debouncer callback; it runs under the debouncer lock.
func (c *Client) deliver(seq uint64, result *domain.MetricsResult, err error) {
	if err != nil {
		c.enqueue(ServerMessage{Type: TypeValidationError, Seq: seq, Payload: validationPayload(err)})
		return
	}
	c.enqueue(ServerMessage{Type: TypeMetrics, Seq: seq, Payload: result})
}

// recompute resubmits the last accepted filter, if any.
func (c *Client) recompute() {
	if seq, ok := c.debouncer.Resubmit(); ok {
		c.logger.Debug("recompute scheduled", "seq", seq)
	}
}

// ReadPump pumps messages from the websocket connection to the session.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps messages from the session to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// handleIncomingMessage processes messages received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	switch msg.Type {
	case TypeSetFilters:
		c.handleSetFilters(msg.Payload)

	case TypePing:
		c.enqueue(ServerMessage{Type: TypePong})

	default:
		c.logger.Debug("received unknown message type", "type", msg.Type)
	}
}

func (c *Client) handleSetFilters(payload json.RawMessage) {
	var params validation.FilterParams
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &params); err != nil {
			seq := c.debouncer.Supersede()
			c.enqueue(ServerMessage{Type: TypeValidationError, Seq: seq, Payload: ValidationErrorPayload{
				Error: "Invalid filter payload",
				Code:  "BAD_REQUEST",
			}})
			return
		}
	}

	filter, err := validation.ValidateParams(params)
	if err != nil {
		seq := c.debouncer.Supersede()
		c.enqueue(ServerMessage{Type: TypeValidationError, Seq: seq, Payload: validationPayload(err)})
		return
	}

	seq, err := c.debouncer.Submit(filter)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.enqueue(ServerMessage{Type: TypeValidationError, Seq: seq, Payload: validationPayload(err)})
		}
		return
	}

	c.logger.Debug("filter change scheduled", "seq", seq, "scope", filter.Scope)
}

func validationPayload(err error) ValidationErrorPayload {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return ValidationErrorPayload{Error: appErr.Message, Code: appErr.Code, Details: appErr.Details}
	}
	var verrs *apperrors.ValidationErrors
	if errors.As(err, &verrs) {
		return ValidationErrorPayload{Error: "Validation failed", Code: "VALIDATION_ERROR", Fields: verrs.Errors}
	}
	return ValidationErrorPayload{Error: err.Error(), Code: "VALIDATION_ERROR"}
}
