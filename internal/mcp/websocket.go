package mcp

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxMessageSize bounds one inbound websocket message.
	DefaultMaxMessageSize = 1 << 20
)

// wsConn is one websocket client. Each text frame carries one JSON-RPC
// message; responses are written back on the same connection.
type wsConn struct {
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// WSHandler serves JSON-RPC over websockets.
type WSHandler struct {
	server         *Server
	upgrader       websocket.Upgrader
	maxMessageSize int64
	conns          sync.Map // *wsConn -> struct{}
}

// NewWSHandler creates a websocket handler. maxMessageSize <= 0 selects
// DefaultMaxMessageSize.
func NewWSHandler(server *Server, maxMessageSize int64) *WSHandler {
	if maxMessageSize <= 0 {
		maxMessageSize = DefaultMaxMessageSize
	}
	return &WSHandler{
		server:         server,
		maxMessageSize: maxMessageSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// ServeHTTP upgrades the connection and starts its pumps.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	conn := &wsConn{
		ws:   ws,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
	h.conns.Store(conn, struct{}{})

	log.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	go h.writePump(conn)
	go h.readPump(conn)
}

func (h *WSHandler) readPump(conn *wsConn) {
	defer func() {
		h.conns.Delete(conn)
		conn.close()
	}()

	conn.ws.SetReadLimit(h.maxMessageSize)
	_ = conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	conn.ws.SetPongHandler(func(string) error {
		return conn.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		_, message, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		response := h.server.HandleMessage(ctx, message)
		if response == nil {
			continue
		}

		data, err := json.Marshal(response)
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal WebSocket response")
			continue
		}

		select {
		case conn.send <- data:
		case <-conn.done:
			return
		}
	}
}

func (h *WSHandler) writePump(conn *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.close()
	}()

	for {
		select {
		case <-conn.done:
			return

		case message := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close sends a going-away frame to every client and closes its connection.
func (h *WSHandler) Close() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	h.conns.Range(func(key, _ any) bool {
		if conn, ok := key.(*wsConn); ok {
			_ = conn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			conn.close()
		}
		h.conns.Delete(key)
		return true
	})
}
