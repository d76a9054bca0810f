package repository

import (
	"context"

	"convo/internal/domain/entity"
)

// MessageRepository is the durable, ordered append log of messages per chat.
type MessageRepository interface {
	// Append assigns the message a per-chat monotonically increasing id and a
	// server timestamp that is non-decreasing across appends to the same chat,
	// then writes it. A storage failure leaves the log untouched.
	Append(ctx context.Context, message *entity.Message) (*entity.Message, error)
	GetByID(ctx context.Context, chatID string, id int64) (*entity.Message, error)
	ListByChat(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)
	// MarkRead flips IsRead on unread messages addressed to userID and returns
	// how many were updated.
	MarkRead(ctx context.Context, chatID, userID string) (int, error)
}
