package handlers

import (
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
	"github.com/gopherchat/gopherchat/internal/push"
)

// PusherAuth authorizes a private-channel subscription. A participant channel
// may only be subscribed to by its owner; other channels pass straight
// through to the SDK.
func (h *Handler) PusherAuth(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, middleware.LoginPath)
		return
	}

	channel := c.PostForm("channel_name")
	socketID := c.PostForm("socket_id")
	if channel == "" || socketID == "" {
		common.Fail(c, http.StatusBadRequest, "channel_name and socket_id required")
		return
	}

	if email, isParticipantChannel := push.ParseParticipantChannel(channel); isParticipantChannel && email != user.Email {
		common.Fail(c, http.StatusBadRequest, "User not permitted to subscribe to participant updates")
		return
	}

	params := url.Values{
		"channel_name": {channel},
		"socket_id":    {socketID},
	}
	resp, err := h.Push.AuthorizePrivateChannel([]byte(params.Encode()))
	if err != nil {
		log.Printf("pusher_auth: user=%d channel=%s err=%v", user.ID, channel, err)
		common.Fail(c, http.StatusBadRequest, "subscription authorization failed")
		return
	}

	c.Data(http.StatusOK, "application/json", resp)
}
