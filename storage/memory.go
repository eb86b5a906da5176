package storage

import (
	"sync"
	"time"
)

// MemorySeenStore keeps seen users in a map. Used as a fallback when
// MongoDB is unavailable; records do not survive a restart.
type MemorySeenStore struct {
	seen  map[string]SeenRecord
	mutex sync.Mutex
}

func NewMemorySeenStore() *MemorySeenStore {
	return &MemorySeenStore{
		seen: make(map[string]SeenRecord),
	}
}

func (m *MemorySeenStore) MarkSeen(userId string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.seen[userId]; ok {
		return false, nil
	}
	m.seen[userId] = SeenRecord{
		UserId:      userId,
		FirstSeenAt: time.Now(),
	}
	return true, nil
}

func (m *MemorySeenStore) Close() error {
	return nil
}
