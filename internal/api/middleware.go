package api

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/services"
	"orderportal/server/internal/session"
)

const (
	ctxSessionKey   = "portal_session"
	ctxUserKey      = "portal_user"
	ctxRequestIDKey = "request_id"

	requestIDHeader = "X-Request-ID"
)

// RequestID tags every request with an id, reusing the caller's when present
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ctxRequestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs method, path, status and latency of every request
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Printf("🌐 %s %s - Status: %d - Latency: %v - %s",
			method, path, c.Writer.Status(), time.Since(start), c.GetString(ctxRequestIDKey))
	}
}

// LoadSession attaches the session named by the portal cookie, if any, and
// scopes the request context to the page being served.
func (p *Portal) LoadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess := p.sessionFromCookie(c); sess != nil {
			c.Set(ctxSessionKey, sess)
		}
		p.scopeContext(c)
		c.Next()
	}
}

func (p *Portal) sessionFromCookie(c *gin.Context) *session.Session {
	raw, err := c.Cookie(p.cfg.SessionCookie)
	if err != nil || raw == "" {
		return nil
	}
	id, err := p.signer.Parse(raw)
	if err != nil {
		return nil
	}
	sess, ok := p.store.Get(id)
	if !ok {
		return nil
	}
	return sess
}

// ensureSession returns the current session or starts a new one
func (p *Portal) ensureSession(c *gin.Context) (*session.Session, error) {
	if sess := currentSession(c); sess != nil {
		return sess, nil
	}
	sess, err := p.store.Create()
	if err != nil {
		return nil, err
	}
	token, err := p.signer.Sign(sess.ID)
	if err != nil {
		p.store.Delete(sess.ID)
		return nil, err
	}
	http.SetCookie(c.Writer, session.Cookie(p.cfg.SessionCookie, token, p.cfg.SessionTTL, p.cfg.IsProduction()))
	c.Set(ctxSessionKey, sess)
	p.scopeContext(c)
	return sess, nil
}

func (p *Portal) scopeContext(c *gin.Context) {
	path, rawQuery := pageOf(c.Request)
	ctx := backend.WithPage(c.Request.Context(), path, rawQuery)
	if sess := currentSession(c); sess != nil {
		actor := services.Actor{SessionID: sess.ID}
		if user := sess.Auth.User(); user != nil {
			actor.Username = user.Username
		}
		ctx = services.WithActor(ctx, actor)
	}
	c.Request = c.Request.WithContext(ctx)
}

// pageOf is the page a backend call is made for. Actions posted from a page
// return to that page, taken from the same-host Referer.
func pageOf(r *http.Request) (string, string) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return r.URL.Path, r.URL.RawQuery
	}
	if ref, err := url.Parse(r.Referer()); err == nil && ref.Path != "" && (ref.Host == "" || ref.Host == r.Host) {
		return ref.Path, ref.RawQuery
	}
	return r.URL.Path, r.URL.RawQuery
}

func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(ctxSessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

// AuthGate lets a request through only with a session the backend accepts.
// Public paths are never gated.
func (p *Portal) AuthGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if p.policy.Exempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		sess := currentSession(c)
		if sess == nil {
			p.redirectToLogin(c, "")
			return
		}

		user, err := p.auth.Check(c.Request.Context(), sess.API, sess.Auth)
		if errors.Is(err, services.ErrUnauthenticated) {
			var apiErr *backend.APIError
			redirect := ""
			if errors.As(err, &apiErr) {
				redirect = apiErr.Redirect
			}
			p.redirectToLogin(c, redirect)
			return
		}
		if err != nil {
			// the backend is unreachable; pages report that themselves
			log.Printf("⚠️ auth check for session %s: %v", sess.ID, err)
		}
		if user != nil {
			c.Set(ctxUserKey, *user)
			p.scopeContext(c)
		}
		c.Next()
	}
}

// redirectToLogin answers browsers with a redirect and API callers with 401
func (p *Portal) redirectToLogin(c *gin.Context, target string) {
	if target == "" {
		path, rawQuery := pageOf(c.Request)
		target = p.policy.LoginURL(path, rawQuery)
	}
	if wantsHTML(c.Request) {
		c.Redirect(http.StatusFound, target)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":    "Prijava je istekla.",
		"redirect": target,
	})
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html")
}
