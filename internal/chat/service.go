package chat

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/gopherchat/gopherchat/internal/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEmptyMessage         = errors.New("message text must not be empty")
	ErrNotParticipant       = errors.New("author is not a participant of the conversation")
	ErrNoMessages           = errors.New("conversation has no messages")
)

// Service implements conversation resolution, message posting and summaries.
type Service struct {
	repo  *Repo
	clock func() time.Time
}

// NewService wires the repo with a clock. A nil clock means time.Now; tests
// inject their own to control timestamps.
func NewService(repo *Repo, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: repo, clock: clock}
}

func emailSet(conv *Conversation) map[string]struct{} {
	set := make(map[string]struct{}, len(conv.Participants))
	for _, p := range conv.Participants {
		set[p.User.Email] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// FindOneOnOne locates the conversation whose participant set is exactly
// {user.Email, remoteEmail}. The scan is linear over the user's conversations,
// which stay small in practice; the pair-key index makes the match unique.
func (s *Service) FindOneOnOne(ctx context.Context, user *models.User, remoteEmail string) (*Conversation, error) {
	part, err := s.repo.ParticipantForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	convs, err := s.repo.ConversationsForParticipant(ctx, part.ID)
	if err != nil {
		return nil, err
	}

	want := map[string]struct{}{user.Email: {}, remoteEmail: {}}
	for i := range convs {
		if setsEqual(emailSet(&convs[i]), want) {
			return &convs[i], nil
		}
	}
	return nil, ErrConversationNotFound
}

// FindOrCreateOneOnOne resolves the pair's conversation, creating it on first
// contact. Concurrent first contacts collapse onto one conversation via the
// pair-key unique index. Returns ErrUserNotFound when remoteEmail does not
// belong to any account.
func (s *Service) FindOrCreateOneOnOne(ctx context.Context, user *models.User, remoteEmail string) (*Conversation, error) {
	conv, err := s.FindOneOnOne(ctx, user, remoteEmail)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return nil, err
	}

	remote, err := s.repo.UserByEmail(ctx, remoteEmail)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	myPart, err := s.repo.ParticipantForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	remotePart, err := s.repo.ParticipantForUser(ctx, remote.ID)
	if err != nil {
		return nil, err
	}

	parts := []models.Participant{*myPart}
	if remotePart.ID != myPart.ID {
		parts = append(parts, *remotePart)
	}

	conv, _, err = s.repo.CreateConversationOrGetExisting(ctx, PairKey(myPart.ID, remotePart.ID), parts)
	return conv, err
}

// PostMessage appends a message to the conversation. Empty text is rejected,
// as is an author who is not a member of the conversation.
func (s *Service) PostMessage(ctx context.Context, conv *Conversation, author *models.Participant, text string) (*Message, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}

	member := false
	for _, p := range conv.Participants {
		if p.ID == author.ID {
			member = true
			break
		}
	}
	if !member {
		return nil, ErrNotParticipant
	}

	msg := &Message{
		ConversationID: conv.ID,
		ParticipantID:  author.ID,
		Text:           text,
		CreatedAt:      s.clock(),
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Service) messageSummary(m *Message) MessageSummary {
	return MessageSummary{
		Email:     m.Participant.User.Email,
		Body:      m.Text,
		Timestamp: FormatInstant(m.CreatedAt, s.clock()),
	}
}

// ListMessages returns the conversation's messages oldest first.
func (s *Service) ListMessages(ctx context.Context, conv *Conversation) ([]MessageSummary, error) {
	msgs, err := s.repo.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	out := make([]MessageSummary, 0, len(msgs))
	for i := range msgs {
		out = append(out, s.messageSummary(&msgs[i]))
	}
	return out, nil
}

// Summary renders a conversation with its most recent message. Conversations
// without messages have no summary and yield ErrNoMessages.
func (s *Service) Summary(ctx context.Context, conv *Conversation) (*ConversationSummary, error) {
	last, err := s.repo.LastMessage(ctx, conv.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoMessages
		}
		return nil, err
	}

	emails := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		emails = append(emails, p.User.Email)
	}
	sort.Strings(emails)

	return &ConversationSummary{
		ParticipantEmails: emails,
		LastMessage:       s.messageSummary(last),
	}, nil
}

// ConversationSummaries lists the user's conversations that hold at least one
// message, most recent interaction first.
func (s *Service) ConversationSummaries(ctx context.Context, user *models.User) ([]ConversationSummary, error) {
	part, err := s.repo.ParticipantForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	convs, err := s.repo.ConversationsForParticipant(ctx, part.ID)
	if err != nil {
		return nil, err
	}

	type entry struct {
		summary ConversationSummary
		lastAt  time.Time
	}
	entries := make([]entry, 0, len(convs))
	for i := range convs {
		last, err := s.repo.LastMessage(ctx, convs[i].ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		emails := make([]string, 0, len(convs[i].Participants))
		for _, p := range convs[i].Participants {
			emails = append(emails, p.User.Email)
		}
		sort.Strings(emails)

		entries = append(entries, entry{
			summary: ConversationSummary{
				ParticipantEmails: emails,
				LastMessage:       s.messageSummary(last),
			},
			lastAt: last.CreatedAt,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].lastAt.After(entries[j].lastAt)
	})

	out := make([]ConversationSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.summary)
	}
	return out, nil
}

// ParticipantForUser exposes the chat identity of an account to the handlers.
func (s *Service) ParticipantForUser(ctx context.Context, userID uint64) (*models.Participant, error) {
	return s.repo.ParticipantForUser(ctx, userID)
}
