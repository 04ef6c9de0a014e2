package session

import (
	"time"
)

// PruneStats accumulates what idle pruning has evicted.
type PruneStats struct {
	SessionsPruned int64
	MessagesPruned int64
	LastPruneAt    time.Time
}

// PruneIdle evicts sessions whose last activity is older than maxIdle
// from memory. Their files stay on disk, so a returning sender gets the
// history back; eviction just bounds what an always-on bridge holds.
func (m *Manager) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, session := range m.sessions {
		session.mu.RLock()
		idle := session.UpdatedAt.Before(cutoff)
		messages := len(session.Messages)
		session.mu.RUnlock()

		if !idle {
			continue
		}

		delete(m.sessions, id)
		evicted++
		m.pruneStats.MessagesPruned += int64(messages)
	}

	m.pruneStats.SessionsPruned += int64(evicted)
	m.pruneStats.LastPruneAt = time.Now()

	return evicted
}

// GetPruneStats returns cumulative prune statistics.
func (m *Manager) GetPruneStats() PruneStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pruneStats
}
