// doc-flow/internal/handlers/events_hub.go
//
// Live document events over websockets. Clients connect per organization and
// receive a message whenever a document in their organization changes status,
// which is how the board updates without polling while a client signs.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/colaisr/doc-flow/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GlobalHub is the single hub instance for the whole process.
var GlobalHub = NewHub()

// DocumentEvent is the wire format pushed to clients.
type DocumentEvent struct {
	Type       string                `json:"type"`
	DocumentID uint                  `json:"document_id"`
	LeadID     uint                  `json:"lead_id"`
	Status     models.DocumentStatus `json:"status"`
	Title      string                `json:"title"`
}

type eventClient struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	orgID  uint
	userID uint
}

type orgEvent struct {
	orgID uint
	data  []byte
}

type Hub struct {
	clients    map[*eventClient]struct{}
	broadcast  chan orgEvent
	register   chan *eventClient
	unregister chan *eventClient
	mu         sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*eventClient]struct{}),
		broadcast:  make(chan orgEvent, 64),
		register:   make(chan *eventClient),
		unregister: make(chan *eventClient),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			slog.Info("Event client connected", "user_id", client.userID, "org_id", client.orgID)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			slog.Info("Event client disconnected", "user_id", client.userID)

		case event := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if client.orgID != event.orgID {
					continue
				}
				select {
				case client.send <- event.data:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastDocumentEvent pushes a status change to every connected client of
// the document's organization. A full broadcast channel drops the event
// rather than blocking the request that triggered it.
func (h *Hub) BroadcastDocumentEvent(orgID uint, doc *models.Document) {
	event := DocumentEvent{
		Type:       "documentStatusChanged",
		DocumentID: doc.ID,
		LeadID:     doc.LeadID,
		Status:     doc.Status,
		Title:      doc.Title,
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal document event", "error", err)
		return
	}
	select {
	case h.broadcast <- orgEvent{orgID: orgID, data: data}:
	default:
		slog.Warn("Event hub backlog full, dropping event", "document_id", doc.ID)
	}
}

// EventsHandler upgrades the connection and ties it to the session's
// organization.
func EventsHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "error", err)
		return
	}
	client := &eventClient{
		hub:    GlobalHub,
		conn:   conn,
		send:   make(chan []byte, 16),
		orgID:  currentOrgID(c),
		userID: currentUserID(c),
	}
	GlobalHub.register <- client

	go client.writeLoop()
	go client.readLoop()
}

func (c *eventClient) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop discards client messages; it exists to detect disconnects.
func (c *eventClient) readLoop() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
