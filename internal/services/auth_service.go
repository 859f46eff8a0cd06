package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/models"
)

// ErrUnauthenticated means the backend rejected the session (401/403)
var ErrUnauthenticated = errors.New("not authenticated")

const loginFailedMessage = "Login failed. Try again."

// Authenticator is the backend surface used by the auth flow
type Authenticator interface {
	Me(ctx context.Context) (models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (models.User, error)
	Logout(ctx context.Context) error
}

// AuthState is the per-session result of the last successful identity check
type AuthState struct {
	mu        sync.Mutex
	user      *models.User
	checkedAt time.Time
}

func (s *AuthState) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *AuthState) set(user models.User, at time.Time) {
	s.mu.Lock()
	s.user = &user
	s.checkedAt = at
	s.mu.Unlock()
}

func (s *AuthState) Reset() {
	s.mu.Lock()
	s.user = nil
	s.checkedAt = time.Time{}
	s.mu.Unlock()
}

func (s *AuthState) fresh(now time.Time, ttl time.Duration) (*models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || now.Sub(s.checkedAt) >= ttl {
		return nil, false
	}
	u := *s.user
	return &u, true
}

// AuthService validates portal sessions against /api/me/
type AuthService struct {
	ttl time.Duration
	now func() time.Time
}

func NewAuthService(checkTTL time.Duration) *AuthService {
	return &AuthService{ttl: checkTTL, now: time.Now}
}

// Check returns the session user, asking the backend only when the cached
// answer is older than the check TTL. Rejections wrap ErrUnauthenticated;
// other failures are returned as they are and leave the cache untouched.
func (s *AuthService) Check(ctx context.Context, api Authenticator, state *AuthState) (*models.User, error) {
	if user, ok := state.fresh(s.now(), s.ttl); ok {
		return user, nil
	}

	user, err := api.Me(ctx)
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && apiErr.IsAuth() {
			state.Reset()
			return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return state.User(), err
	}
	state.set(user, s.now())
	return &user, nil
}

// Login posts the credentials with the CSRF header
func (s *AuthService) Login(ctx context.Context, api Authenticator, state *AuthState, req models.LoginRequest) (models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	user, err := api.Login(ctx, req)
	if err != nil {
		state.Reset()
		log.Printf("⚠️ login failed for %q: %v", req.Username, err)
		return models.User{}, err
	}
	// some backends answer the login with an empty body
	if user.ID == 0 && user.Username == "" {
		if me, meErr := api.Me(ctx); meErr == nil {
			user = me
		} else {
			user.Username = req.Username
		}
	}
	state.set(user, s.now())
	log.Printf("✅ %s logged in", user.Username)
	return user, nil
}

// LoginMessage is the text shown under the login form
func LoginMessage(err error) string {
	msg := backend.UserMessage(err)
	if msg == "" {
		return loginFailedMessage
	}
	return msg
}

// Logout always ends the local session; a backend failure (for example an
// already expired session) is only logged.
func (s *AuthService) Logout(ctx context.Context, api Authenticator, state *AuthState) {
	if err := api.Logout(ctx); err != nil {
		log.Printf("⚠️ backend logout failed: %v", err)
	}
	state.Reset()
}
