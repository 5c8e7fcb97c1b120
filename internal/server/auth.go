package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tracker/internal/auth"
	"tracker/internal/models"
)

const userKey = "user"

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// requireUser resolves the session and rejects anonymous requests.
func (s *Server) requireUser(c *gin.Context) {
	user, err := s.auth.CurrentUser(c.Request.Context(), sessionToken(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// currentUser returns the user stored by requireUser.
func currentUser(c *gin.Context) models.User {
	u, _ := c.MustGet(userKey).(models.User)
	return u
}

// sessionToken reads the session cookie, falling back to a bearer token.
func sessionToken(c *gin.Context) string {
	if token, err := c.Cookie(auth.CookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Server) startSession(c *gin.Context, u models.User) bool {
	token, _, err := s.auth.IssueToken(u)
	if err != nil {
		s.respondError(c, err)
		return false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(s.auth.TTL().Seconds()), "/", "", s.options.SecureCookie, true)
	return true
}

// handleRegister creates an account and signs it in.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	user, err := s.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !s.startSession(c, user) {
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"user": user})
}

// handleLogin checks credentials and issues a session cookie.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}

	user, err := s.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !s.startSession(c, user) {
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"user": user})
}

// handleLogout clears the session cookie.
func (s *Server) handleLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, "", -1, "/", "", s.options.SecureCookie, true)
	respondSuccess(c, http.StatusOK, gin.H{"status": "logged out"})
}

// handleMe returns the signed-in user.
func (s *Server) handleMe(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"user": currentUser(c)})
}
