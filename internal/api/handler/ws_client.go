package handler

import (
	"babelchat/backend/internal/session"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024

	frameRate  = 10
	frameBurst = 20
)

// Client frame types.
const (
	frameMessage        = "message"
	frameTyping         = "typing"
	frameToggleOriginal = "toggle_original"
	frameReconnect      = "reconnect"
)

type inboundFrame struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	MessageID string `json:"message_id"`
}

type outboundFrame struct {
	Type     string                `json:"type"`
	Snapshot *session.ViewSnapshot `json:"snapshot,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// wsClient pumps session snapshots out to one WebSocket and client frames
// back into the session view.
type wsClient struct {
	userID  string
	conn    *websocket.Conn
	view    *session.View
	send    chan []byte
	limiter *rate.Limiter

	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn, userID string) *wsClient {
	return &wsClient{
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, 16),
		limiter: rate.NewLimiter(rate.Limit(frameRate), frameBurst),
		done:    make(chan struct{}),
	}
}

func (c *wsClient) Run() {
	go c.writePump()
	go c.readPump()
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.view != nil {
			c.view.Close()
		}
	})
}

// closeWithError reports err to the client and closes the connection.
func (c *wsClient) closeWithError(err error) {
	data, _ := json.Marshal(outboundFrame{Type: "error", Error: err.Error()})
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.TextMessage, data)
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, ""))
	c.conn.Close()
}

// pushSnapshot queues a frame. Snapshots carry the whole view, so when the
// queue is full the oldest one is discarded.
func (c *wsClient) pushSnapshot(s session.ViewSnapshot) {
	c.push(outboundFrame{Type: "snapshot", Snapshot: &s})
}

func (c *wsClient) pushError(msg string) {
	c.push(outboundFrame{Type: "error", Error: msg})
}

func (c *wsClient) push(f outboundFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		slog.Error("ws_encode_failed", "user_id", c.userID, "error", err)
		return
	}
	select {
	case c.send <- data:
		return
	default:
	}
	select {
	case <-c.send:
	default:
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("ws_read_failed", "user_id", c.userID, "error", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.pushError("rate limit exceeded")
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.pushError("invalid frame")
			continue
		}
		c.handle(frame)
	}
}

func (c *wsClient) handle(frame inboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	switch frame.Type {
	case frameMessage:
		if _, err := c.view.Send(ctx, frame.Content); err != nil {
			c.pushError(err.Error())
		}
	case frameTyping:
		if err := c.view.Typing(ctx); err != nil {
			slog.Debug("ws_typing_failed", "user_id", c.userID, "error", err)
		}
	case frameToggleOriginal:
		if !c.view.ToggleOriginal(frame.MessageID) {
			c.pushError("unknown message")
		}
	case frameReconnect:
		if err := c.view.Reconnect(ctx); err != nil {
			c.pushError(err.Error())
		}
	default:
		c.pushError("unknown frame type")
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
