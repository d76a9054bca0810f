package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"convo/pkg/logger"
)

// Registry is the process-wide table of live connections per chat. It is the
// only structure mutated by more than one session concurrently; everything
// else talks to it through Register/Deregister/FanOut.
type Registry struct {
	mu    sync.RWMutex
	chats map[string]map[string]*Client // chatID -> connID -> client
}

func NewRegistry() *Registry {
	return &Registry{
		chats: make(map[string]map[string]*Client),
	}
}

// Register adds the client under its chat. Registering the same connection id
// twice is a no-op.
func (r *Registry) Register(chatID string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.chats[chatID]
	if !ok {
		conns = make(map[string]*Client)
		r.chats[chatID] = conns
	}
	if _, exists := conns[client.ConnID]; exists {
		return
	}
	conns[client.ConnID] = client
	logger.Debug("Connection %s registered for chat %s (%d active)", client.ConnID, chatID, len(conns))
}

// Deregister removes the connection; it tolerates double calls and unknown
// ids. Empty chat entries are dropped to keep the map from growing over time.
func (r *Registry) Deregister(chatID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.chats[chatID]
	if !ok {
		return
	}
	if _, exists := conns[connID]; !exists {
		return
	}
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.chats, chatID)
	}
	logger.Debug("Connection %s deregistered from chat %s", connID, chatID)
}

// ActiveConnections reports how many connections are live for a chat.
func (r *Registry) ActiveConnections(chatID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chats[chatID])
}

// FanOut delivers payload to every live connection on the chat except the
// sender's own. Delivery is fire-and-forget per peer: a peer whose queue is
// full or whose connection is closed gets dropped and deregistered without
// affecting the others. Iteration happens over a snapshot, so a connection
// joining mid-fan-out may or may not see this payload but never a torn one.
func (r *Registry) FanOut(chatID string, payload []byte, excludeConnID string) {
	r.mu.RLock()
	snapshot := make([]*Client, 0, len(r.chats[chatID]))
	for _, client := range r.chats[chatID] {
		snapshot = append(snapshot, client)
	}
	r.mu.RUnlock()

	for _, client := range snapshot {
		if client.ConnID == excludeConnID {
			continue
		}
		if !client.Enqueue(payload) {
			logger.Warn("Dropping slow connection %s on chat %s", client.ConnID, chatID)
			r.Deregister(chatID, client.ConnID)
			client.CloseWithCode(websocket.CloseGoingAway, "send queue overflow")
		}
	}
}

// CloseAll shuts every live connection down; used on server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	var clients []*Client
	for _, conns := range r.chats {
		for _, client := range conns {
			clients = append(clients, client)
		}
	}
	r.chats = make(map[string]map[string]*Client)
	r.mu.Unlock()

	for _, client := range clients {
		client.CloseWithCode(websocket.CloseNormalClosure, "server shutting down")
	}
}
