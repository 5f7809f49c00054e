package envstore

import "sync"

// Memory is an in-memory Store used by tests in place of the registry.
type Memory struct {
	mu         sync.Mutex
	values     map[string]string
	broadcasts int

	// SetErr, when non-nil, is returned by Set to simulate write failures.
	SetErr error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]string),
	}
}

// Get returns the stored value for name.
func (m *Memory) Get(name string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[name]

	return value, ok, nil
}

// Set stores the value for name, or fails with SetErr when configured.
func (m *Memory) Set(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetErr != nil {
		return m.SetErr
	}

	m.values[name] = value

	return nil
}

// Broadcast counts refresh notifications instead of sending them.
func (m *Memory) Broadcast() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.broadcasts++

	return nil
}

// Broadcasts reports how many refresh notifications were requested.
func (m *Memory) Broadcasts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.broadcasts
}
