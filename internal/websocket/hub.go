package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"claudebuddy-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	logModule    = "WS_HUB"
	redisChannel = "research_events"

	// allTasks is the subscription key of clients watching every task.
	allTasks = "*"
)

// Hub fans research lifecycle notifications out to dashboard websocket
// clients. With Redis configured, notifications raised on one instance are
// relayed to clients connected to the others.
type Hub struct {
	// task id (or allTasks) -> clients
	clients map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	rdb        *redis.Client
	instanceID string

	logger logger.ILogger
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	TaskID  string          `json:"task_id"`
	Message json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		logger:     log,
	}
}

// Run owns client registration until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.TaskID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.TaskID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Info(logModule, "Client registered", map[string]interface{}{"task_id": client.TaskID})

		case client := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[client.TaskID]; ok {
				if _, present := set[client]; present {
					delete(set, client)
					close(client.Send)
				}
				if len(set) == 0 {
					delete(h.clients, client.TaskID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients across all keys.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Notify delivers payload to clients watching taskID or all tasks and relays
// it to other instances.
func (h *Hub) Notify(ctx context.Context, taskID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error(logModule, "Failed to encode notification", map[string]interface{}{"error": err.Error()})
		return
	}

	h.deliver(taskID, data)

	if h.rdb == nil {
		return
	}
	msg, _ := json.Marshal(clusterMessage{Origin: h.instanceID, TaskID: taskID, Message: data})
	if err := h.rdb.Publish(ctx, redisChannel, msg).Err(); err != nil {
		h.logger.Warn(logModule, "Failed to relay notification", map[string]interface{}{"error": err.Error()})
	}
}

func (h *Hub) deliver(taskID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, key := range []string{taskID, allTasks} {
		for client := range h.clients[key] {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn(logModule, "Client send buffer full, dropping client", map[string]interface{}{"task_id": key})
				go h.drop(client)
			}
		}
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn(logModule, "Malformed cluster message", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceID {
				continue
			}
			h.deliver(payload.TaskID, payload.Message)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, set := range h.clients {
		for client := range set {
			close(client.Send)
		}
		delete(h.clients, key)
	}
}
