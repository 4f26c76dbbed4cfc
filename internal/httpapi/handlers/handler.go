package handlers

import (
	"context"
	"time"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/push"
	"gorm.io/gorm"
)

// SessionStore is the session backend as the login/logout handlers use it.
type SessionStore interface {
	CreateSession(ctx context.Context, sessionID string, userID uint64, ttl time.Duration) error
	SessionUserID(ctx context.Context, sessionID string) (uint64, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// NotificationQueue enqueues conversation-updated events for the worker.
type NotificationQueue interface {
	PublishConversationUpdated(ctx context.Context, conversationID uint64) error
}

type Handler struct {
	DB       *gorm.DB
	Cfg      config.Config
	Sessions SessionStore
	Push     push.Broadcaster
	Queue    NotificationQueue
	Repo     *chat.Repo
	ChatSvc  *chat.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, sessions SessionStore, pushClient push.Broadcaster, queue NotificationQueue) *Handler {
	repo := chat.NewRepo(db)
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Sessions: sessions,
		Push:     pushClient,
		Queue:    queue,
		Repo:     repo,
		ChatSvc:  chat.NewService(repo, nil),
	}
}
