package session

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

// Manager holds all sessions in memory. Sessions live until deleted;
// there is no persistence across process restarts.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a new session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// CreateParams carries the request fields needed to start a session.
// MaxRetries is a pointer so an explicit zero (no retries) is distinct
// from an absent value, which defaults to 3.
type CreateParams struct {
	UserID     string
	UserPrompt string
	RepoURL    string
	Mode       models.Mode
	MaxRetries *int
}

// Create registers a new session in the intake stage.
func (m *Manager) Create(p CreateParams) (*Session, error) {
	if !p.Mode.Valid() {
		return nil, fmt.Errorf("invalid mode %q", p.Mode)
	}
	maxRetries := 3
	if p.MaxRetries != nil {
		maxRetries = *p.MaxRetries
		if maxRetries < 0 {
			maxRetries = 0
		}
	}

	now := time.Now()
	s := &Session{
		ID:           NewID(),
		UserID:       p.UserID,
		UserPrompt:   p.UserPrompt,
		RepoURL:      p.RepoURL,
		Mode:         p.Mode,
		MaxRetries:   maxRetries,
		Stage:        models.StageIntake,
		Status:       models.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		StageTimings: make(map[models.Stage]time.Duration),
		stageEntered: now,
	}
	s.confirm = newConfirmChannel(s)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	return s, nil
}

// Get retrieves a session by ID.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return s, nil
}

// List returns snapshots of all sessions, newest first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete removes a session and releases its confirmation channel.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	s.Confirmations().Close()
	delete(m.sessions, sessionID)
	return nil
}
