package store

import (
	"sync"

	"bookreader/pkg/domain"
)

// MemoryStore keeps all records in-process. It backs tests and local
// development without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User // key: user ID
	usernames map[string]string      // username -> user ID
	books     map[string]domain.Book
	bookOrder []string
	pages     map[string]domain.Page
	pageOrder []string
	donations []domain.Donation
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		usernames: make(map[string]string),
		books:     make(map[string]domain.Book),
		pages:     make(map[string]domain.Page),
	}
}

// CreateUser registers a user, rejecting duplicate usernames.
func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usernames[u.Username]; exists {
		return ErrUsernameTaken
	}
	m.users[u.ID] = u
	m.usernames[u.Username] = u.ID
	return nil
}

// GetUserByUsername looks up a user by username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usernames[username]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// SaveBook stores or replaces a book and tracks insertion order.
func (m *MemoryStore) SaveBook(b domain.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[b.ID]; !exists {
		m.bookOrder = append(m.bookOrder, b.ID)
	}
	m.books[b.ID] = b
	return nil
}

// ListBooks returns one page of books in insertion order plus the total count.
func (m *MemoryStore) ListBooks(offset, limit int) ([]domain.Book, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]domain.Book, 0, len(m.bookOrder))
	for _, id := range m.bookOrder {
		if b, ok := m.books[id]; ok {
			all = append(all, b)
		}
	}
	return pageSlice(all, offset, limit), len(all), nil
}

// GetBook retrieves a book by ID.
func (m *MemoryStore) GetBook(id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	return b, ok, nil
}

// DeleteBook removes a book and its pages.
func (m *MemoryStore) DeleteBook(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.books, id)
	m.bookOrder = removeID(m.bookOrder, id)
	kept := m.pageOrder[:0]
	for _, pageID := range m.pageOrder {
		if p, ok := m.pages[pageID]; ok && p.BookID == id {
			delete(m.pages, pageID)
			continue
		}
		kept = append(kept, pageID)
	}
	m.pageOrder = kept
	return nil
}

// SavePage stores or replaces a page and tracks insertion order.
func (m *MemoryStore) SavePage(p domain.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pages[p.ID]; !exists {
		m.pageOrder = append(m.pageOrder, p.ID)
	}
	m.pages[p.ID] = p
	return nil
}

// ListPagesByBook returns one page of a book's pages plus the total count.
func (m *MemoryStore) ListPagesByBook(bookID string, offset, limit int) ([]domain.Page, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]domain.Page, 0, len(m.pageOrder))
	for _, id := range m.pageOrder {
		if p, ok := m.pages[id]; ok && p.BookID == bookID {
			all = append(all, p)
		}
	}
	return pageSlice(all, offset, limit), len(all), nil
}

// GetPage retrieves a page by ID.
func (m *MemoryStore) GetPage(id string) (domain.Page, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	return p, ok, nil
}

// DeletePage removes a page.
func (m *MemoryStore) DeletePage(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, id)
	m.pageOrder = removeID(m.pageOrder, id)
	return nil
}

// SaveDonation appends a donation ledger entry.
func (m *MemoryStore) SaveDonation(d domain.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.donations = append(m.donations, d)
	return nil
}

// ListDonations returns all donations in insertion order.
func (m *MemoryStore) ListDonations() ([]domain.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Donation, len(m.donations))
	copy(res, m.donations)
	return res, nil
}

func pageSlice[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func removeID(ids []string, id string) []string {
	kept := ids[:0]
	for _, item := range ids {
		if item != id {
			kept = append(kept, item)
		}
	}
	return kept
}
