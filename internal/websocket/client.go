package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"siteops-backend/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048
)

// LocationWriter is the store surface a client needs for location_update
type LocationWriter interface {
	OperatorByEmail(ctx context.Context, email string) (*models.Operator, error)
	UpdateOperatorLocation(ctx context.Context, id int, location models.Coordinate) (*models.Operator, error)
}

// Client represents a WebSocket client connection
type Client struct {
	ID        string
	UserID    string
	UserEmail string
	UserRole  string // "operator", "supervisor" or "admin"
	conn      *websocket.Conn
	hub       *Hub
	send      chan []byte
	locations LocationWriter
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data"` // For location_update data
}

// NewClient creates a new WebSocket client
func NewClient(userID, email, role string, conn *websocket.Conn, hub *Hub, locations LocationWriter) *Client {
	return &Client{
		ID:        uuid.New().String(),
		UserID:    userID,
		UserEmail: email,
		UserRole:  role,
		conn:      conn,
		hub:       hub,
		send:      make(chan []byte, 256),
		locations: locations,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Invalid message format: %v", err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Format(time.RFC3339),
			})

		case "location_update":
			if err := c.handleLocationUpdate(msg.Data); err != nil {
				log.Printf("❌ location_update from %s rejected: %v", c.UserID, err)
				c.reply(map[string]interface{}{
					"type":  "error",
					"error": err.Error(),
				})
			}
		}
	}
}

// reply goes through the hub so only the run loop writes to send
func (c *Client) reply(data interface{}) {
	c.hub.enqueue(&Message{ClientID: c.ID, Data: data})
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleLocationUpdate moves the operator behind this connection. Operators
// move themselves; supervisors and admins may name an operator_id.
func (c *Client) handleLocationUpdate(data map[string]interface{}) error {
	if c.locations == nil {
		return fmt.Errorf("location updates are not available")
	}

	x, okX := data["x"].(float64)
	y, okY := data["y"].(float64)
	if !okX || !okY {
		return fmt.Errorf("x and y are required")
	}
	zone, _ := data["zone"].(string)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	operatorID, err := c.resolveOperator(ctx, data)
	if err != nil {
		return err
	}

	op, err := c.locations.UpdateOperatorLocation(ctx, operatorID, models.Coordinate{X: x, Y: y, Zone: zone})
	if err != nil {
		return err
	}

	log.Printf("📍 Operator %d (%s) moved to (%.1f, %.1f)", op.ID, op.Name, x, y)
	c.hub.PublishOperatorLocation(*op)
	return nil
}

func (c *Client) resolveOperator(ctx context.Context, data map[string]interface{}) (int, error) {
	if c.UserRole != string(models.RoleOperator) {
		if id, ok := data["operator_id"].(float64); ok {
			return int(id), nil
		}
	}

	op, err := c.locations.OperatorByEmail(ctx, c.UserEmail)
	if err != nil {
		return 0, err
	}
	return op.ID, nil
}
