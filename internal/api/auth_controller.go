package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/models"
	"orderportal/server/internal/services"
	"orderportal/server/internal/session"
)

// LoginPage describes the login form; next is echoed back for the redirect
// GET /login?next=...
func (p *Portal) LoginPage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"next":      safeNext(c.Query("next")),
		"csrfReady": currentSession(c) != nil,
	})
}

// Login authenticates against the backend with the CSRF header
// POST /login
func (p *Portal) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unesite korisničko ime i lozinku.",
			"details": err.Error(),
		})
		return
	}

	sess, err := p.ensureSession(c)
	if err != nil {
		p.respondError(c, err)
		return
	}

	user, err := p.auth.Login(c.Request.Context(), sess.API, sess.Auth, req)
	if err != nil {
		status := http.StatusBadRequest
		var transportErr *backend.TransportError
		if errors.As(err, &transportErr) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": services.LoginMessage(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     user,
		"redirect": safeNext(c.Query("next")),
	})
}

// Logout ends the portal session even when the backend call fails
// POST /logout
func (p *Portal) Logout(c *gin.Context) {
	if sess := currentSession(c); sess != nil {
		p.auth.Logout(c.Request.Context(), sess.API, sess.Auth)
		sess.Workflow.Reset()
		p.store.Delete(sess.ID)
	}
	http.SetCookie(c.Writer, session.ExpiredCookie(p.cfg.SessionCookie, p.cfg.IsProduction()))
	c.JSON(http.StatusOK, gin.H{"redirect": p.policy.LoginURL("", "")})
}

// safeNext only allows local absolute paths as the post-login target
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}
