package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
)

// Index renders the chat page for the logged-in user.
func (h *Handler) Index(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Email":     user.Email,
		"PusherKey": h.Cfg.PusherKey,
		"Cluster":   h.Cfg.PusherCluster,
	})
}

// FindUsers lists account emails matching the posted prefix.
func (h *Handler) FindUsers(c *gin.Context) {
	prefix := c.PostForm("email_prefix")

	emails, err := h.Repo.EmailsByPrefix(c.Request.Context(), prefix)
	if err != nil {
		log.Printf("find_users: prefix=%q err=%v", prefix, err)
		common.Fail(c, http.StatusInternalServerError, "failed to search users")
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails})
}

// GetConversations lists the user's conversations with at least one message,
// newest interaction first.
func (h *Handler) GetConversations(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}

	summaries, err := h.ChatSvc.ConversationSummaries(c.Request.Context(), user)
	if err != nil {
		log.Printf("get_conversations: user=%d err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// GetMessages lists the one-on-one conversation with the posted email,
// creating the conversation on first contact.
func (h *Handler) GetMessages(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}

	remoteEmail := c.PostForm("email")
	if remoteEmail == "" {
		common.Fail(c, http.StatusBadRequest, "Must specify email")
		return
	}

	ctx := c.Request.Context()
	conv, err := h.ChatSvc.FindOrCreateOneOnOne(ctx, user, remoteEmail)
	if err != nil {
		if errors.Is(err, chat.ErrUserNotFound) {
			common.Fail(c, http.StatusBadRequest, "No user exists with that email")
			return
		}
		log.Printf("get_messages: user=%d email=%s err=%v", user.ID, remoteEmail, err)
		common.Fail(c, http.StatusInternalServerError, "failed to load messages")
		return
	}

	msgs, err := h.ChatSvc.ListMessages(ctx, conv)
	if err != nil {
		log.Printf("get_messages: user=%d conv=%d err=%v", user.ID, conv.ID, err)
		common.Fail(c, http.StatusInternalServerError, "failed to load messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage appends a message to the existing conversation with the posted
// email and enqueues a notification for the worker to fan out. The enqueue is
// fire-and-forget: a queue failure is logged, never surfaced to the caller.
func (h *Handler) PostMessage(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}

	ctx := c.Request.Context()
	conv, err := h.ChatSvc.FindOneOnOne(ctx, user, c.PostForm("email"))
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			common.Fail(c, http.StatusBadRequest, "Conversation not specified or does not exist")
			return
		}
		log.Printf("post_message: user=%d err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, "failed to post message")
		return
	}

	author, err := h.ChatSvc.ParticipantForUser(ctx, user.ID)
	if err != nil {
		log.Printf("post_message: user=%d err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, "failed to post message")
		return
	}

	if _, err := h.ChatSvc.PostMessage(ctx, conv, author, c.PostForm("message_text")); err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			common.Fail(c, http.StatusBadRequest, "Must specify message")
			return
		}
		if errors.Is(err, chat.ErrNotParticipant) {
			common.Fail(c, http.StatusBadRequest, "Not a participant of this conversation")
			return
		}
		log.Printf("post_message: user=%d conv=%d err=%v", user.ID, conv.ID, err)
		common.Fail(c, http.StatusInternalServerError, "failed to post message")
		return
	}

	if err := h.Queue.PublishConversationUpdated(ctx, conv.ID); err != nil {
		log.Printf("post_message: enqueue notification conv=%d err=%v", conv.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{})
}
