package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Connection roles.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Client represents a single WebSocket connection. SessionID and PollID are
// set when a student sends join:student; teachers never carry them.
type Client struct {
	ID        string
	Role      string
	SessionID string
	PollID    *uuid.UUID

	hub       *Hub
	router    *Router
	conn      *websocket.Conn
	send      chan Message
	closeOnce sync.Once
	logger    *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop. Teacher
// connections must present a valid token; students connect anonymously and
// identify themselves via join:student.
func ServeWs(hub *Hub, router *Router, logger *zap.Logger, jwtValidate func(token string) (role string, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.Query("role")
		if role != RoleTeacher {
			role = RoleStudent
		}
		if role == RoleTeacher {
			tokenRole, err := jwtValidate(c.Query("token"))
			if err != nil || tokenRole != RoleTeacher {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:        uuid.New().String(),
			Role:      role,
			SessionID: c.Query("sessionId"),
			hub:       hub,
			router:    router,
			conn:      conn,
			send:      make(chan Message, 256),
			logger:    logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// trySend queues a message without blocking. A client whose send buffer is
// full is considered stuck and dropped.
func (c *Client) trySend(msg Message) {
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("client send buffer full, dropping connection",
			zap.String("client_id", c.ID))
		c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.router.ClientGone(c)
		c.close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		c.router.Dispatch(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
