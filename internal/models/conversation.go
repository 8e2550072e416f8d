package models

import "time"

type Conversation struct {
	ID                 string     `json:"id"`
	ParticipantIDs     []string   `json:"participant_ids"`
	LastMessageID      *string    `json:"last_message_id,omitempty"`
	LastMessageContent string     `json:"last_message_content,omitempty"`
	LastMessageTime    *time.Time `json:"last_message_time,omitempty"`
	UnreadCount        int        `json:"unread_count"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type MessageStatus string

const (
	MessageStatusSent MessageStatus = "sent"
	MessageStatusRead MessageStatus = "read"
)

type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	SenderID       string        `json:"sender_id"`
	RecipientID    string        `json:"recipient_id"`
	Content        string        `json:"content"`
	AttachmentURL  *string       `json:"attachment_url,omitempty"`
	Status         MessageStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	ReadAt         *time.Time    `json:"read_at,omitempty"`
}

type StartConversationRequest struct {
	ParticipantID string `json:"participant_id"`
}

type SendMessageRequest struct {
	ConversationID string  `json:"-" validate:"required"`
	SenderID       string  `json:"-" validate:"required"`
	RecipientID    string  `json:"recipient_id" validate:"required,nefield=SenderID"`
	Content        string  `json:"content" validate:"required,max=5000"`
	AttachmentURL  *string `json:"attachment_url,omitempty" validate:"omitempty,max=2048"`
}
