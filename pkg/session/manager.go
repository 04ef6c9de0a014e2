// Package session manages conversation history for chat senders.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"toribot/pkg/fileutil"
)

// Message roles recorded in the history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single utterance in a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the message history for one sender.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
	mu        sync.RWMutex
}

// Stats summarizes the sessions currently held in memory.
type Stats struct {
	Sessions int `json:"sessions"`
	Messages int `json:"messages"`
}

// Manager manages multiple sessions with persistent storage.
type Manager struct {
	baseDir    string
	window     int
	sessions   map[string]*Session
	pruneStats PruneStats
	mu         sync.RWMutex
}

// NewManager creates a session manager persisting under baseDir. window
// bounds how many messages Recent returns.
func NewManager(baseDir string, window int) *Manager {
	os.MkdirAll(baseDir, 0755)
	return &Manager{
		baseDir:  baseDir,
		window:   window,
		sessions: make(map[string]*Session),
	}
}

// Get retrieves or creates a session by ID.
func (m *Manager) Get(sessionID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, exists := m.sessions[sessionID]; exists {
		return session
	}

	session, err := m.load(sessionID)
	if err != nil {
		session = &Session{
			ID:        sessionID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
			Messages:  []Message{},
		}
	}

	m.sessions[sessionID] = session
	return session
}

// Append records a message in the session and persists it.
func (m *Manager) Append(sessionID, role, content string) error {
	session := m.Get(sessionID)
	session.addMessage(Message{Role: role, Content: content, Timestamp: time.Now()})
	return m.save(session)
}

// Recent returns up to the configured window of latest messages, oldest
// first.
func (m *Manager) Recent(sessionID string) []Message {
	session := m.Get(sessionID)

	session.mu.RLock()
	defer session.mu.RUnlock()

	start := 0
	if m.window > 0 && len(session.Messages) > m.window {
		start = len(session.Messages) - m.window
	}

	recent := make([]Message, len(session.Messages)-start)
	copy(recent, session.Messages[start:])
	return recent
}

// Clear empties the session history and persists the empty state.
func (m *Manager) Clear(sessionID string) error {
	session := m.Get(sessionID)

	session.mu.Lock()
	session.Messages = []Message{}
	session.UpdatedAt = time.Now()
	session.mu.Unlock()

	return m.save(session)
}

// Stats reports over sessions currently loaded in memory.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{Sessions: len(m.sessions)}
	for _, session := range m.sessions {
		session.mu.RLock()
		stats.Messages += len(session.Messages)
		session.mu.RUnlock()
	}
	return stats
}

// List returns the IDs of all persisted sessions.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		return nil, err
	}

	var sessionIDs []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(entry.Name(), ".json"))
		}
	}

	return sessionIDs, nil
}

// Delete removes a session from memory and disk.
func (m *Manager) Delete(sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	err := os.Remove(m.sessionPath(sessionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// save persists a session to disk.
func (m *Manager) save(session *Session) error {
	session.mu.RLock()
	data, err := json.MarshalIndent(session, "", "  ")
	session.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := fileutil.WriteFileAtomic(m.sessionPath(session.ID), data, 0644); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// load loads a session from disk.
func (m *Manager) load(sessionID string) (*Session, error) {
	data, err := os.ReadFile(m.sessionPath(sessionID))
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshaling session: %w", err)
	}
	session.ID = sessionID

	return &session, nil
}

// sessionPath returns the file path for a session. Session IDs carry a
// channel prefix like "kakao:", so filesystem-hostile runes are mapped
// away.
func (m *Manager) sessionPath(sessionID string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, sessionID)

	return filepath.Join(m.baseDir, safe+".json")
}

func (s *Session) addMessage(message Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Messages = append(s.Messages, message)
	s.UpdatedAt = time.Now()
}

// LastActive returns when the session was last touched.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UpdatedAt
}
