package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/httpapi/handlers"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
	"github.com/gopherchat/gopherchat/internal/push"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg config.Config, sessions handlers.SessionStore, pushClient push.Broadcaster, queue handlers.NotificationQueue) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.LoadHTMLGlob(cfg.TemplateGlob)
	r.Static("/static", cfg.StaticDir)

	h := handlers.NewHandler(db, cfg, sessions, pushClient, queue)

	r.GET("/ping", h.Ping)
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/chat/")
	})

	chatGroup := r.Group("/chat")
	chatGroup.GET("/login/", h.ShowLogin)
	chatGroup.POST("/login/", h.Login)
	chatGroup.GET("/logout/", h.Logout)
	chatGroup.POST("/logout/", h.Logout)

	authed := chatGroup.Group("")
	authed.Use(middleware.SessionRequired(db, cfg.SessionSecret, sessions))
	authed.GET("/", h.Index)
	authed.POST("/find_users/", h.FindUsers)
	authed.POST("/get_conversations/", h.GetConversations)
	authed.POST("/get_messages/", h.GetMessages)
	authed.POST("/post_message/", h.PostMessage)
	authed.POST("/pusher_auth/", h.PusherAuth)

	return r
}
