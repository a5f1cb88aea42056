package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/erp/doclink/internal/domain/lineage"
)

// Cookie names under which the store returns its session artifacts. Both
// must be retained and replayed on every subsequent call.
const (
	sessionCookieName = "B1SESSION"
	routeCookieName   = "ROUTEID"
)

// Session is an authenticated context against the remote document store.
type Session struct {
	SessionID     string
	RouteID       string
	EstablishedAt time.Time
}

// Apply attaches the session's credential cookies to a request.
func (s *Session) Apply(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: s.SessionID})
	if s.RouteID != "" {
		req.AddCookie(&http.Cookie{Name: routeCookieName, Value: s.RouteID})
	}
}

// SessionManager owns the process-wide login lifecycle. It reuses a session
// until the renewal threshold passes, then logs in again. The store
// invalidates sessions server-side after an undocumented idle period, so
// renewal is pessimistic rather than reactive.
type SessionManager struct {
	cfg        *Config
	httpClient *http.Client
	logger     *zap.Logger

	mu      sync.Mutex
	current *Session

	// group collapses concurrent logins triggered by simultaneous expiry
	// into a single exchange.
	group singleflight.Group
}

// NewSessionManager creates a session manager for the given store.
func NewSessionManager(cfg *Config, logger *zap.Logger) (*SessionManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SessionManager{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.LoginTimeout},
		logger:     logger,
	}, nil
}

// Acquire returns the current session, performing a login exchange when no
// session exists or the renewal threshold has passed. Login failure is
// fatal for the calling operation and is never retried here.
func (m *SessionManager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.current != nil && time.Since(m.current.EstablishedAt) < m.cfg.SessionRenewal {
		s := m.current
		m.mu.Unlock()
		return s, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("login", func() (any, error) {
		// Re-check under the flight: a concurrent caller may have already
		// renewed while this one waited for the flight slot.
		m.mu.Lock()
		if m.current != nil && time.Since(m.current.EstablishedAt) < m.cfg.SessionRenewal {
			s := m.current
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()

		s, err := m.login(ctx)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.current = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Invalidate drops the cached session so the next Acquire re-authenticates.
// Called exactly when a downstream call reports the session as expired.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()
}

// login performs the credential exchange against the store's /Login endpoint
// and extracts both session cookies from the response.
func (m *SessionManager) login(ctx context.Context) (*Session, error) {
	payload, err := json.Marshal(loginRequest{
		CompanyDB: m.cfg.CompanyDB,
		UserName:  m.cfg.Username,
		Password:  m.cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("remote: failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/Login", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("remote: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", lineage.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: HTTP %d: %s", lineage.ErrAuthFailed, resp.StatusCode, truncate(body, 512))
	}

	session := &Session{EstablishedAt: time.Now()}
	for _, c := range resp.Cookies() {
		switch c.Name {
		case sessionCookieName:
			session.SessionID = c.Value
		case routeCookieName:
			session.RouteID = c.Value
		}
	}
	if session.SessionID == "" {
		return nil, fmt.Errorf("%w: login response carried no %s cookie", lineage.ErrMalformedResponse, sessionCookieName)
	}

	m.logger.Debug("remote session established",
		zap.String("company_db", m.cfg.CompanyDB),
		zap.Bool("route_id", session.RouteID != ""),
	)
	return session, nil
}
