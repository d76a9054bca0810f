package websocket

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"

	"convo/internal/domain/entity"
	"convo/pkg/logger"
)

// Ingestor turns one raw inbound frame into a persisted, fanned-out message.
// It returns the acknowledgment for the sender; validation and store failures
// are reported through the ack, never by closing the connection.
type Ingestor interface {
	Ingest(ctx context.Context, sender *entity.User, chat *entity.Chat, connID string, payload []byte) Ack
}

// Session drives one authenticated, authorized connection through its active
// phase: register, receive loop, teardown. Authentication and authorization
// happen before a Session exists; by construction there is no way to reach
// the receive loop without them.
type Session struct {
	client   *Client
	sender   *entity.User
	chat     *entity.Chat
	registry *Registry
	ingestor Ingestor
}

func NewSession(client *Client, sender *entity.User, chat *entity.Chat, registry *Registry, ingestor Ingestor) *Session {
	return &Session{
		client:   client,
		sender:   sender,
		chat:     chat,
		registry: registry,
		ingestor: ingestor,
	}
}

// Run blocks until the connection closes. Deregistration runs exactly once no
// matter how the loop exits; Client.Close is idempotent so a concurrent
// shutdown or fan-out drop cannot double-free anything.
func (s *Session) Run(ctx context.Context) {
	s.registry.Register(s.chat.ID, s.client)
	defer func() {
		s.registry.Deregister(s.chat.ID, s.client.ConnID)
		s.client.Close()
	}()

	// A server shutdown closes the connection, which unblocks ReadMessage.
	stop := context.AfterFunc(ctx, func() {
		s.client.CloseWithCode(websocket.CloseNormalClosure, "server shutting down")
	})
	defer stop()

	go s.client.WritePump()
	s.client.setupRead()

	for {
		_, payload, err := s.client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Connection %s closed unexpectedly: %v", s.client.ConnID, err)
			} else {
				logger.Debug("Connection %s closed: %v", s.client.ConnID, err)
			}
			return
		}

		ack := s.ingestor.Ingest(ctx, s.sender, s.chat, s.client.ConnID, payload)

		b, err := json.Marshal(ack)
		if err != nil {
			logger.Error("Failed to marshal ack for connection %s: %v", s.client.ConnID, err)
			continue
		}
		if !s.client.Enqueue(b) {
			return
		}
	}
}
