// Package session keeps per-browser state: login, the captured face held
// between the two steps of Add Face, and the confirmation flags behind the
// two-step delete. Sessions live in memory; the cookie carries only a signed
// session ID.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// CookieName is the session cookie set on login.
	CookieName = "facegate_session"

	sessionDuration = 24 * time.Hour
	sweepInterval   = time.Hour
)

// FlagKey identifies one pending confirmation. Flags are scoped to the page
// that raised them and to the record they concern, so confirmations never
// bleed between records or between the Manage and Delete pages.
type FlagKey struct {
	Page     string
	RecordID int64
	Name     string
}

// HeldCapture is the face captured on the Add Face page, retained until the
// operator submits the form or the capture is replaced.
type HeldCapture struct {
	Embedding []float64
	FrameJPEG []byte
}

// Session é o estado de um navegador autenticado ou anônimo.
type Session struct {
	ID        string
	Username  string
	LoggedIn  bool
	CreatedAt time.Time
	ExpiresAt time.Time

	mu       sync.Mutex
	captured *HeldCapture
	flags    map[FlagKey]bool
}

// Login marks the session authenticated as username.
func (s *Session) Login(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Username = username
	s.LoggedIn = true
}

// IsLoggedIn reports whether the session is authenticated.
func (s *Session) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.LoggedIn
}

// SetCapture replaces the held capture. A fresh capture always overwrites
// the previous one.
func (s *Session) SetCapture(c *HeldCapture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captured = c
}

// Capture returns the held capture without consuming it, or nil.
func (s *Session) Capture() *HeldCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured
}

// TakeCapture returns the held capture and clears it. Used on successful
// submit so a stale capture cannot be inserted twice.
func (s *Session) TakeCapture() *HeldCapture {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.captured
	s.captured = nil
	return c
}

// SetFlag raises a pending confirmation.
func (s *Session) SetFlag(key FlagKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags == nil {
		s.flags = make(map[FlagKey]bool)
	}
	s.flags[key] = true
}

// Flag reports whether the confirmation is pending.
func (s *Session) Flag(key FlagKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[key]
}

// ClearFlag drops one pending confirmation.
func (s *Session) ClearFlag(key FlagKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, key)
}

// ClearPageFlags drops every pending confirmation raised by a page. Called
// when the operator navigates away, so half-finished deletes do not survive
// a page change.
func (s *Session) ClearPageFlags(page string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.flags {
		if key.Page == page {
			delete(s.flags, key)
		}
	}
}

// Manager cria e valida sessões. The cookie value is the session ID plus an
// HMAC-SHA256 signature, so a forged ID is rejected before the store lookup.
type Manager struct {
	secret   []byte
	mu       sync.RWMutex
	sessions map[string]*Session
	done     chan struct{}
}

func NewManager(secret string) *Manager {
	m := &Manager{
		secret:   []byte(secret),
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}

	go m.sweep()

	return m
}

// Stop shuts down the expiry sweeper.
func (m *Manager) Stop() {
	close(m.done)
}

// sweep evicts expired sessions that are never presented again, so
// abandoned browsers do not pin memory for the process lifetime.
func (m *Manager) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictExpired(time.Now())
		}
	}
}

func (m *Manager) evictExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, session := range m.sessions {
		if now.After(session.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
}

// Create registers a new anonymous session and returns it together with the
// signed cookie value.
func (m *Manager) Create() (*Session, string) {
	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(sessionDuration),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session, m.CookieValue(session.ID)
}

// Get returns the live session for id, or nil when unknown or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil
	}
	if time.Now().After(session.ExpiresAt) {
		m.Delete(id)
		return nil
	}

	return session
}

// Delete removes a session from the store.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Parse validates a cookie value and returns the session it names, or nil
// when the signature or session is invalid.
func (m *Manager) Parse(cookieValue string) *Session {
	parts := strings.SplitN(cookieValue, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	if !m.verify(parts[0], parts[1]) {
		return nil
	}
	return m.Get(parts[0])
}

// CookieValue signs a session ID for transport in the cookie.
func (m *Manager) CookieValue(id string) string {
	return id + "." + m.sign(id)
}

// TTL is the session lifetime, exported for the cookie max-age.
func (m *Manager) TTL() time.Duration {
	return sessionDuration
}

func (m *Manager) sign(data string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte(data))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

func (m *Manager) verify(data, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(m.sign(data)))
}
