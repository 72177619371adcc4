package session

import (
	"context"
	"sync"

	"github.com/hoshinonyaruko/snake-classic/driver"
	"github.com/hoshinonyaruko/snake-classic/snake"
)

// Manager manages all live sessions
type Manager struct {
	opts   snake.Options
	driver driver.Driver
	store  Storage

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions share opts, the driver
// cadence and store.
func NewManager(opts snake.Options, d driver.Driver, store Storage) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		opts:     opts,
		driver:   d,
		store:    store,
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*Session),
	}
}

// Create 新建一局，autostart 为 true 时立即开始
func (m *Manager) Create(autostart bool) *Session {
	s := newSession(m.ctx, snake.New(m.opts, m.store), m.store, m.driver)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if autostart {
		s.Start()
	}
	return s
}

// Get returns a session by ID
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove 关闭并删除一局，不存在时返回 false
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

// Count returns the number of sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Store 返回共享的存储
func (m *Manager) Store() Storage {
	return m.store
}

// Close closes every session. The store is left open.
func (m *Manager) Close() {
	m.cancel()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
