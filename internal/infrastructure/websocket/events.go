package websocket

import "convo/internal/domain/entity"

// InboundEvent is the only shape accepted from a client. Sender identity and
// timestamps are never part of it; both are assigned server-side.
type InboundEvent struct {
	Content         string `json:"content"`
	MessageType     string `json:"messageType,omitempty" validate:"omitempty,oneof=text image file"`
	AttachmentURL   string `json:"attachmentUrl,omitempty" validate:"omitempty,url"`
	ParentMessageID int64  `json:"parentMessageId,omitempty" validate:"omitempty,gt=0"`
	ReceiverID      string `json:"receiverId,omitempty"`
}

const (
	AckStatusSent     = "sent"
	AckStatusRejected = "rejected"
	AckStatusError    = "error"
)

// Ack is the per-event delivery acknowledgment sent back to the sender.
type Ack struct {
	Status    string `json:"status"`
	MessageID int64  `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

const EventTypeMessage = "message"

// Event is the fan-out envelope delivered to the other participants.
type Event struct {
	Type    string          `json:"type"`
	Message *entity.Message `json:"message"`
}

// Close codes used when a connection is rejected during the handshake.
// Codes in the 4000 range are reserved for applications by RFC 6455.
const (
	CloseUnauthorized = 4401
	CloseForbidden    = 4403
	CloseChatNotFound = 4404
)
