package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"journal-desk/models"
)

// MemoryStore hält Sitzungen, Lesezeichen und den Snapshot im Speicher.
// Wird verwendet, wenn keine Datenbank konfiguriert ist.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]models.Session
	bookmarks map[string][]models.Bookmark
	snapshot  []*models.Issue
	nextID    uint
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]models.Session),
		bookmarks: make(map[string][]models.Bookmark),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) Touch(ctx context.Context, sessionID, userID string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	sess, ok := m.sessions[sessionID]
	if !ok {
		sess = models.Session{SessionID: sessionID, UserID: userID, CreatedAt: now}
	}
	sess.LastSeen = now
	m.sessions[sessionID] = sess
	return sess, nil
}

func (m *MemoryStore) ListBookmarks(ctx context.Context, sessionID string) ([]models.Bookmark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := append([]models.Bookmark(nil), m.bookmarks[sessionID]...)
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (m *MemoryStore) AddBookmark(ctx context.Context, sessionID, issueID string) (models.Bookmark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookmarks[sessionID] {
		if b.IssueID == issueID {
			return b, nil
		}
	}
	m.nextID++
	b := models.Bookmark{ID: m.nextID, CreatedAt: m.now(), SessionID: sessionID, IssueID: issueID}
	m.bookmarks[sessionID] = append(m.bookmarks[sessionID], b)
	return b, nil
}

func (m *MemoryStore) RemoveBookmark(ctx context.Context, sessionID, issueID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.bookmarks[sessionID]
	for i, b := range list {
		if b.IssueID == issueID {
			m.bookmarks[sessionID] = append(list[:i:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) SaveSnapshot(ctx context.Context, issues []*models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = issues
	return nil
}

func (m *MemoryStore) LoadSnapshot(ctx context.Context) ([]*models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, nil
}
