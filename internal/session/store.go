package session

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"orderportal/server/internal/backend"
	"orderportal/server/internal/services"
)

// Session is the server-side state of one browser: its backend cookies and
// every view that must survive between requests.
type Session struct {
	ID        string
	CreatedAt time.Time

	API      *backend.API
	Auth     *services.AuthState
	Workflow *services.OrderWorkflow
	Orders   *services.OrderListView
	Mailbox  *services.MailboxView

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Deps builds the per-session views
type Deps struct {
	Factory       *backend.Factory
	Bus           *services.InvalidationBus
	Workflow      services.WorkflowConfig
	OrderPageSize int
	MailPageSize  int
}

// Store keeps sessions in memory and drops them after ttl of inactivity
type Store struct {
	deps Deps
	ttl  time.Duration
	now  func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(deps Deps, ttl time.Duration) *Store {
	return &Store{
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session with an empty cookie jar
func (s *Store) Create() (*Session, error) {
	jar, err := backend.NewJar()
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	api := backend.NewAPI(s.deps.Factory.ForJar(jar))

	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		API:       api,
		Auth:      &services.AuthState{},
		Workflow:  services.NewOrderWorkflow(api, s.deps.Workflow),
		Orders:    services.NewOrderListView(s.deps.Bus, s.deps.OrderPageSize),
		Mailbox:   services.NewMailboxView(s.deps.MailPageSize),
		lastSeen:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns a live session and marks it as used
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	now := s.now()
	if sess.idleSince(now) >= s.ttl {
		s.Delete(id)
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince(now) >= s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps every interval until ctx is done
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("🧹 removed %d expired sessions, %d active", n, s.Len())
				}
			}
		}
	}()
}

// Cookie builds the portal session cookie carrying token
func Cookie(name, token string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredCookie clears the portal session cookie
func ExpiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
