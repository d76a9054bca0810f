package entity

import "time"

const (
	ChatTypeDirect = "direct"
	ChatTypeGroup  = "group"
)

type Chat struct {
	ID           string   `json:"id" firestore:"id"`
	Name         string   `json:"name" firestore:"name"`
	Type         string   `json:"type" firestore:"type"` // "direct", "group"
	Participants []string `json:"participants" firestore:"participants"`

	// MessageSeq is the id of the last message appended to this chat. It is
	// advanced transactionally together with LastMessageAt so that message ids
	// are strictly increasing and timestamps non-decreasing per chat.
	MessageSeq    int64     `json:"-" firestore:"messageSeq"`
	LastMessage   string    `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// HasParticipant reports whether userID is a member of the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}
