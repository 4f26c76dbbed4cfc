package chat

import (
	"fmt"
	"time"

	"github.com/gopherchat/gopherchat/internal/models"
)

// Conversation is a message thread shared by two or more participants.
//
// PairKey is set for every one-on-one conversation: the canonical sorted
// participant-id pair. Its unique index is what guarantees at most one
// conversation per pair even when two first messages race.
type Conversation struct {
	ID           uint64               `gorm:"primaryKey;autoIncrement"`
	PairKey      *string              `gorm:"type:varchar(64);uniqueIndex"`
	Participants []models.Participant `gorm:"many2many:conversation_participants"`
	CreatedAt    time.Time
}

func (Conversation) TableName() string { return "conversations" }

// PairKey canonicalizes an unordered participant-id pair.
func PairKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("p:%d:%d", a, b)
}

// Message belongs to exactly one conversation and was posted by exactly one
// participant. Messages are immutable once stored.
type Message struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64 `gorm:"index;not null"`
	ParticipantID  uint64 `gorm:"not null"`
	Participant    models.Participant
	Text           string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"index"`
}

func (Message) TableName() string { return "messages" }

// MessageSummary is the wire representation of a message.
type MessageSummary struct {
	Email     string `json:"email"`
	Body      string `json:"body"`
	Timestamp string `json:"timestamp"`
}

// ConversationSummary is the wire representation of a conversation: who is in
// it and the most recent message.
type ConversationSummary struct {
	ParticipantEmails []string       `json:"participant_emails"`
	LastMessage       MessageSummary `json:"last_message"`
}
