package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"consultdesk/internal/adapters/metrics"
	"consultdesk/internal/domain/booking"
	"consultdesk/internal/domain/flash"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const sessionContextKey contextKey = "session"

// SessionTTL bounds how long a browser session (and the admin token in it) lives.
const SessionTTL = 12 * time.Hour

// ErrSessionNotFound is returned by stores for unknown ids.
var ErrSessionNotFound = errors.New("session not found")

// Session is the per-browser page state: what the pages would otherwise keep
// in script variables and tab-scoped storage. Handlers mutate it in place;
// the Sessions middleware saves it after the handler returns.
type Session struct {
	ID string

	// Admin credential forwarded as X-Admin-Token. Empty means logged out.
	AdminToken string
	// ExpertAuthed is set after the expert code was accepted by the API.
	ExpertAuthed bool

	// Student page state
	SelectedSlotID int64
	ExpertIndex    int
	LastBooking    *booking.Receipt
	PopupOpen      bool
	// Draft keeps typed booking form values across slot selection and paging.
	Draft *booking.Request

	Flash flash.Set

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether an admin token is held. Advisory only; the API re-validates.
func (s *Session) IsAdmin() bool { return s != nil && s.AdminToken != "" }

// Expired reports whether the session outlived SessionTTL at now.
func (s *Session) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > SessionTTL
}

// PutFlash stores a message for the next render of its target.
func (s *Session) PutFlash(target, text, kind string) {
	if s.Flash == nil {
		s.Flash = flash.Set{}
	}
	s.Flash.Put(target, text, kind)
}

// TakeFlash returns the pending messages for targets and clears them.
// With no targets every pending message is taken.
// POST: s.Flash holds no message for the taken targets
func (s *Session) TakeFlash(targets ...string) flash.Set {
	out := flash.Set{}
	if len(targets) == 0 {
		maps.Copy(out, s.Flash)
		s.Flash = nil
		return out
	}
	for _, t := range targets {
		if m, ok := s.Flash.Get(t); ok {
			out[t] = m
			s.Flash.Clear(t)
		}
	}
	return out
}

// Clone returns a deep copy, so stores never share mutable state with handlers.
func (s *Session) Clone() *Session {
	c := *s
	if s.LastBooking != nil {
		rc := *s.LastBooking
		c.LastBooking = &rc
	}
	if s.Draft != nil {
		d := *s.Draft
		c.Draft = &d
	}
	if s.Flash != nil {
		c.Flash = maps.Clone(s.Flash)
	}
	return &c
}

// SessionStore persists sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Purge removes sessions created before cutoff and returns how many remain.
	Purge(ctx context.Context, cutoff time.Time) (remaining int, err error)
}

// MemoryStore is an in-memory session store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Get retrieves a copy of the session.
// PRE: id is non-empty
// POST: Returns ErrSessionNotFound for unknown ids
func (ms *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	s, ok := ms.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// Save stores a copy of the session, replacing any previous version.
func (ms *MemoryStore) Save(_ context.Context, s *Session) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[s.ID] = s.Clone()
	return nil
}

// Delete removes a session by id.
func (ms *MemoryStore) Delete(_ context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, id)
	return nil
}

// Purge removes sessions created before cutoff.
func (ms *MemoryStore) Purge(_ context.Context, cutoff time.Time) (int, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for id, s := range ms.sessions {
		if s.CreatedAt.Before(cutoff) {
			delete(ms.sessions, id)
		}
	}
	return len(ms.sessions), nil
}

const sessionCookieName = "consultdesk_session"

// skipSession lists path prefixes that never touch page state.
var skipSession = []string{"/static/", "/metrics", "/health"}

// Sessions returns middleware that loads the browser's session (creating one
// if missing or expired), puts it in the request context, and saves it after
// the handler returns. Last write wins for overlapping requests.
func Sessions(store SessionStore, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range skipSession {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := r.Context()
			now := time.Now()
			var sess *Session
			if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
				loaded, err := store.Get(ctx, cookie.Value)
				switch {
				case err == nil && !loaded.Expired(now):
					sess = loaded
				case err == nil:
					_ = store.Delete(ctx, loaded.ID)
				case !errors.Is(err, ErrSessionNotFound):
					slog.Error("session_load_failed", "error", err)
				}
			}
			if sess == nil {
				id, err := generateToken()
				if err != nil {
					slog.Error("session_create_failed", "error", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				sess = &Session{ID: id, CreatedAt: now}
				SetSessionCookie(w, id, secure)
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSession(ctx, sess)))

			sess.UpdatedAt = time.Now()
			if err := store.Save(context.WithoutCancel(ctx), sess); err != nil {
				slog.Error("session_save_failed", "session_prefix", sess.ID[:8], "error", err)
			}
		})
	}
}

// RequireAdmin redirects to the admin login page when no token is held.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).IsAdmin() {
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireExpert redirects to the expert login page until the expert code was accepted.
func RequireExpert(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess := SessionFromContext(r.Context()); sess == nil || !sess.ExpertAuthed {
			http.Redirect(w, r, "/expert/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext returns the request's session, or nil outside the Sessions middleware.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}

// ContextWithSession returns a context with the given session set.
// Used by the Sessions middleware and by handler tests.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
	})
}

// Renew moves the session to a fresh id after a privilege change and drops the old row.
// PRE: sess is the request's session
// POST: sess.ID is new and the cookie points to it
func Renew(ctx context.Context, store SessionStore, w http.ResponseWriter, sess *Session, secure bool) error {
	id, err := generateToken()
	if err != nil {
		return err
	}
	old := sess.ID
	sess.ID = id
	SetSessionCookie(w, id, secure)
	if old != "" {
		if err := store.Delete(ctx, old); err != nil {
			slog.Warn("session_delete_failed", "error", err)
		}
	}
	return nil
}

// StartJanitor purges expired sessions every interval and reports the
// remaining count as a gauge. It stops when ctx is cancelled.
func StartJanitor(ctx context.Context, store SessionStore, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				remaining, err := store.Purge(ctx, time.Now().Add(-SessionTTL))
				if err != nil {
					slog.Warn("session_purge_failed", "error", err)
					continue
				}
				metrics.SetActiveSessions(remaining)
			}
		}
	}()
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
