// Package push holds the Pusher channel conventions and the outbound
// notification client. The concrete SDK client is always passed in as a
// Broadcaster so handlers and the worker never touch a global.
package push

import (
	"strings"

	"github.com/gopherchat/gopherchat/internal/chat"
)

const (
	participantChannelPrefix = "private-participant-"

	// ConversationUpdatedEvent is triggered on a participant's private
	// channel whenever a conversation they belong to receives a message.
	ConversationUpdatedEvent = "conversation updated"
)

// Broadcaster is the slice of the Pusher SDK client this application uses.
type Broadcaster interface {
	Trigger(channel string, eventName string, data interface{}) error
	AuthorizePrivateChannel(params []byte) ([]byte, error)
}

// ParticipantChannel names the private channel that carries one user's
// conversation updates.
func ParticipantChannel(email string) string {
	return participantChannelPrefix + email
}

// ParseParticipantChannel extracts the owner email from a participant
// channel name. ok is false for any other channel.
func ParseParticipantChannel(channel string) (email string, ok bool) {
	if !strings.HasPrefix(channel, participantChannelPrefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, participantChannelPrefix), true
}

// Notifier publishes conversation updates to participants' private channels.
type Notifier struct {
	client Broadcaster
}

func NewNotifier(client Broadcaster) *Notifier {
	return &Notifier{client: client}
}

func (n *Notifier) ConversationUpdated(email string, summary chat.ConversationSummary) error {
	return n.client.Trigger(ParticipantChannel(email), ConversationUpdatedEvent, summary)
}
