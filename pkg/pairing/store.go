// Package pairing tracks which senders have proven they know the pairing
// code. Verification survives restarts through a JSON file in the
// workspace.
package pairing

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"toribot/pkg/fileutil"
)

// ErrNotConfigured is returned by Verify when no pairing code hash has
// been set yet.
var ErrNotConfigured = errors.New("pairing code not configured")

// Entry is one verified sender.
type Entry struct {
	SenderID string    `json:"sender_id"`
	Name     string    `json:"name,omitempty"`
	PairedAt time.Time `json:"paired_at"`
}

type storedEntry struct {
	Name     string    `json:"name,omitempty"`
	PairedAt time.Time `json:"paired_at"`
}

// Store holds verified senders and checks pairing codes.
type Store struct {
	path     string
	codeHash string
	verified map[string]storedEntry
	mu       sync.RWMutex
}

type storeFile struct {
	Verified map[string]storedEntry `json:"verified"`
}

// NewStore creates a pairing store persisting at path. codeHash is the
// bcrypt hash senders must match; empty means pairing is not set up.
// A missing or unreadable store file starts empty.
func NewStore(path, codeHash string) *Store {
	s := &Store{
		path:     path,
		codeHash: codeHash,
		verified: make(map[string]storedEntry),
	}
	s.load()
	return s
}

// HashCode returns a bcrypt hash of the plaintext pairing code.
func HashCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pairing code: %w", err)
	}
	return string(hash), nil
}

// CheckCode reports whether the plaintext code matches the bcrypt hash.
func CheckCode(hash, code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}

// IsVerified reports whether the sender has paired.
func (s *Store) IsVerified(senderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.verified[senderID]
	return ok
}

// Verify checks code against the configured hash and, on match, records
// the sender as paired under the given display name. A mismatch returns
// (false, nil).
func (s *Store) Verify(senderID, code, name string) (bool, error) {
	s.mu.RLock()
	hash := s.codeHash
	s.mu.RUnlock()

	if hash == "" {
		return false, ErrNotConfigured
	}
	if !CheckCode(hash, code) {
		return false, nil
	}

	return true, s.Admit(senderID, name)
}

// Admit records a sender as paired without a code check.
func (s *Store) Admit(senderID, name string) error {
	s.mu.Lock()
	s.verified[senderID] = storedEntry{Name: name, PairedAt: time.Now()}
	s.mu.Unlock()
	return s.save()
}

// Revoke removes a sender. It reports whether the sender was paired.
func (s *Store) Revoke(senderID string) (bool, error) {
	s.mu.Lock()
	_, existed := s.verified[senderID]
	delete(s.verified, senderID)
	s.mu.Unlock()

	if !existed {
		return false, nil
	}
	return true, s.save()
}

// List returns all verified senders, oldest pairing first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	entries := make([]Entry, 0, len(s.verified))
	for id, stored := range s.verified {
		entries = append(entries, Entry{SenderID: id, Name: stored.Name, PairedAt: stored.PairedAt})
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PairedAt.Equal(entries[j].PairedAt) {
			return entries[i].SenderID < entries[j].SenderID
		}
		return entries[i].PairedAt.Before(entries[j].PairedAt)
	})
	return entries
}

// SetCodeHash swaps the active code hash, for config hot-reload.
func (s *Store) SetCodeHash(hash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeHash = hash
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var file storeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return
	}
	if file.Verified != nil {
		s.verified = file.Verified
	}
}

func (s *Store) save() error {
	s.mu.RLock()
	file := storeFile{Verified: make(map[string]storedEntry, len(s.verified))}
	for id, stored := range s.verified {
		file.Verified[id] = stored
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling pairing store: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing pairing store: %w", err)
	}
	return nil
}
