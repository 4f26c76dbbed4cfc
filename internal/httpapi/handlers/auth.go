package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gopherchat/gopherchat/internal/auth"
	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
)

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// ShowLogin renders the login page.
func (h *Handler) ShowLogin(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func loginFailed(c *gin.Context, errMsg string) {
	c.HTML(http.StatusOK, "login.html", gin.H{"Error": errMsg})
}

// Login handles both logging in and, when the sign_up field is present,
// creating the account first. Failures re-render the login page with an
// inline error; success establishes a session and redirects to the chat page.
func (h *Handler) Login(c *gin.Context) {
	email := c.PostForm("email")
	if email == "" {
		loginFailed(c, "Email must not be blank.")
		return
	}
	password := c.PostForm("password")
	if password == "" {
		loginFailed(c, "Password must not be blank.")
		return
	}

	ctx := c.Request.Context()

	if _, signUp := c.GetPostForm("sign_up"); signUp {
		if _, err := h.Repo.UserByEmail(ctx, email); err == nil {
			loginFailed(c, "The provided email already exists. Try logging in.")
			return
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Printf("login: hash password email=%s err=%v", email, err)
			loginFailed(c, "Something went wrong. Please try again.")
			return
		}
		if _, err := h.Repo.CreateUser(ctx, email, hash); err != nil {
			log.Printf("login: create user email=%s err=%v", email, err)
			loginFailed(c, "The provided email already exists. Try logging in.")
			return
		}
	}

	user, err := h.Repo.UserByEmail(ctx, email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		loginFailed(c, "Your email and password didn't match. Please try again.")
		return
	}

	sessionID, err := common.NewULID()
	if err != nil {
		log.Printf("login: new session id err=%v", err)
		loginFailed(c, "Something went wrong. Please try again.")
		return
	}
	if err := h.Sessions.CreateSession(ctx, sessionID, user.ID, h.Cfg.SessionTTL); err != nil {
		log.Printf("login: store session user=%d err=%v", user.ID, err)
		loginFailed(c, "Something went wrong. Please try again.")
		return
	}
	token, err := auth.SignSessionToken(user.ID, sessionID, h.Cfg.SessionSecret, h.Cfg.SessionTTL)
	if err != nil {
		log.Printf("login: sign token user=%d err=%v", user.ID, err)
		loginFailed(c, "Something went wrong. Please try again.")
		return
	}

	c.SetCookie(middleware.SessionCookie, token, int(h.Cfg.SessionTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/chat/")
}

// Logout drops the server-side session, clears the cookie and redirects to
// the chat page, which in turn bounces to login.
func (h *Handler) Logout(c *gin.Context) {
	if tokenStr, err := c.Cookie(middleware.SessionCookie); err == nil && tokenStr != "" {
		if claims, err := auth.ParseSessionToken(tokenStr, h.Cfg.SessionSecret); err == nil {
			if err := h.Sessions.DeleteSession(c.Request.Context(), claims.SessionID); err != nil {
				log.Printf("logout: delete session sid=%s err=%v", claims.SessionID, err)
			}
		}
	}
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/chat/")
}
