package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"deck-builder-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const clusterChannel = "deck_events"

// Hub fans workflow event frames out to the websocket connections watching
// each deck session. A session can have several watchers (multiple tabs),
// and with Redis configured frames also reach watchers connected to other
// instances.
type Hub struct {
	// Registered clients map: SessionID -> List of Clients
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance fanout
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session_id": client.SessionID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.SessionID]) == 0 {
					delete(h.clients, client.SessionID)
					h.logger.Info("Hub", "Session has no more watchers", map[string]interface{}{"session_id": client.SessionID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends one event frame to every watcher of the session. Frames
// marked debug only reach watchers that opted into the verbose stream. With
// Redis configured, all delivery goes through the shared channel so each
// frame reaches every instance exactly once and stays in publish order.
func (h *Hub) Publish(sessionID string, frame []byte, debug bool) {
	if h.rdb == nil {
		h.deliverLocal(sessionID, frame, debug)
		return
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"target_session_id": sessionID,
		"message":           json.RawMessage(frame),
		"debug":             debug,
	})
	h.rdb.Publish(context.Background(), clusterChannel, payload)
}

// Watchers reports how many connections are watching the session.
func (h *Hub) Watchers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) deliverLocal(sessionID string, frame []byte, debug bool) {
	h.mu.RLock()
	clients := h.clients[sessionID]
	h.mu.RUnlock()

	for _, client := range clients {
		if debug && !client.Debug {
			continue
		}
		select {
		case client.Send <- frame:
		default:
			// Slow consumer: drop the connection rather than block the
			// workflow goroutine.
			h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"session_id": sessionID})
			h.unregister <- client
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetSessionID string          `json:"target_session_id"`
			Message         json.RawMessage `json:"message"`
			Debug           bool            `json:"debug"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}
		h.deliverLocal(payload.TargetSessionID, payload.Message, payload.Debug)
	}
}
