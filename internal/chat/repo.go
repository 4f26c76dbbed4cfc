package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/gopherchat/gopherchat/internal/models"
	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateUser inserts the account and its chat participant in one transaction.
func (r *Repo) CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user := &models.User{Email: email, PasswordHash: passwordHash}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Participant{UserID: user.ID}).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repo) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) UserByID(ctx context.Context, id uint64) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EmailsByPrefix lists account emails starting with prefix. An empty prefix
// matches nothing rather than everything.
func (r *Repo) EmailsByPrefix(ctx context.Context, prefix string) ([]string, error) {
	emails := []string{}
	if prefix == "" {
		return emails, nil
	}
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email LIKE ?", likeEscaper.Replace(prefix)+"%").
		Order("email ASC").
		Pluck("email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

func (r *Repo) ParticipantForUser(ctx context.Context, userID uint64) (*models.Participant, error) {
	var p models.Participant
	if err := r.db.WithContext(ctx).Preload("User").
		Where("user_id = ?", userID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ConversationsForParticipant returns every conversation the participant is a
// member of, with all members and their accounts loaded.
func (r *Repo) ConversationsForParticipant(ctx context.Context, participantID uint64) ([]Conversation, error) {
	var convs []Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = conversations.id").
		Where("cp.participant_id = ?", participantID).
		Preload("Participants.User").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (r *Repo) ConversationByID(ctx context.Context, id uint64) (*Conversation, error) {
	var conv Conversation
	if err := r.db.WithContext(ctx).Preload("Participants.User").
		First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *Repo) ConversationByPairKey(ctx context.Context, pairKey string) (*Conversation, error) {
	var conv Conversation
	if err := r.db.WithContext(ctx).Preload("Participants.User").
		Where("pair_key = ?", pairKey).
		First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateConversationOrGetExisting tries to create a one-on-one conversation
// for pairKey with the given members. If another request created it first the
// unique index rejects the insert and the winner is returned instead.
func (r *Repo) CreateConversationOrGetExisting(ctx context.Context, pairKey string, parts []models.Participant) (*Conversation, bool, error) {
	conv := &Conversation{PairKey: &pairKey}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		return tx.Model(conv).Association("Participants").Append(&parts)
	})
	if err == nil {
		loaded, loadErr := r.ConversationByID(ctx, conv.ID)
		if loadErr != nil {
			return nil, false, loadErr
		}
		return loaded, true, nil
	}

	existing, getErr := r.ConversationByPairKey(ctx, pairKey)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns a conversation's messages oldest first with authors
// loaded.
func (r *Repo) ListMessages(ctx context.Context, conversationID uint64) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).Preload("Participant.User").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// LastMessage returns the newest message of a conversation, or
// gorm.ErrRecordNotFound when it has none.
func (r *Repo) LastMessage(ctx context.Context, conversationID uint64) (*Message, error) {
	var m Message
	err := r.db.WithContext(ctx).Preload("Participant.User").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Order("id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
