package store

import (
	"errors"
	"sync"

	"postboard/pkg/domain"
)

// ErrEmailTaken mirrors the unique-index violation Postgres raises on a
// duplicate email insert.
var ErrEmailTaken = errors.New("email already taken")

// MemoryStore keeps users and posts in-process. Used by tests and
// single-process runs; IDs are assigned the way the database would.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[uint]domain.User
	email      map[string]uint // email -> user ID
	posts      map[uint]domain.Post
	postOrder  []uint
	nextUserID uint
	nextPostID uint
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[uint]domain.User),
		email: make(map[string]uint),
		posts: make(map[uint]domain.Post),
	}
}

// SaveUser registers a user and assigns its ID.
func (m *MemoryStore) SaveUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.email[u.Email]; exists {
		return domain.User{}, ErrEmailTaken
	}
	m.nextUserID++
	u.ID = m.nextUserID
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return u, nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// SavePost stores a post and assigns its ID.
func (m *MemoryStore) SavePost(p domain.Post) (domain.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextPostID++
	p.ID = m.nextPostID
	m.posts[p.ID] = p
	m.postOrder = append(m.postOrder, p.ID)
	return p, nil
}

// ListPostsByOwner returns the owner's posts in insertion order.
func (m *MemoryStore) ListPostsByOwner(ownerID uint) ([]domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Post, 0, len(m.postOrder))
	for _, id := range m.postOrder {
		if p, ok := m.posts[id]; ok && p.OwnerID == ownerID {
			res = append(res, p)
		}
	}
	return res, nil
}

// DeletePostOwnedBy removes the post when owned by ownerID.
func (m *MemoryStore) DeletePostOwnedBy(ownerID, postID uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	if !ok || p.OwnerID != ownerID {
		return false, nil
	}
	delete(m.posts, postID)
	filtered := m.postOrder[:0]
	for _, id := range m.postOrder {
		if id != postID {
			filtered = append(filtered, id)
		}
	}
	m.postOrder = filtered
	return true, nil
}
