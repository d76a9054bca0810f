package entity

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

// Message is immutable once appended; IsRead is the only field with a
// mutation path. ID and Timestamp are always server-assigned.
type Message struct {
	ID              int64     `json:"id" firestore:"id"`
	ChatID          string    `json:"chat_id" firestore:"chatId"`
	SenderID        string    `json:"sender_id" firestore:"senderId"`
	ReceiverID      string    `json:"receiver_id,omitempty" firestore:"receiverId,omitempty"`
	Content         string    `json:"content" firestore:"content"`
	Type            string    `json:"type" firestore:"type"` // "text", "image", "file"
	AttachmentURL   string    `json:"attachment_url,omitempty" firestore:"attachmentUrl,omitempty"`
	ParentMessageID int64     `json:"parent_message_id,omitempty" firestore:"parentMessageId,omitempty"`
	Timestamp       time.Time `json:"timestamp" firestore:"timestamp"`
	IsRead          bool      `json:"is_read" firestore:"isRead"`
}
