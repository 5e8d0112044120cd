package auth

import (
	"sync"
)

// MockStore is an in-memory CredentialStore for testing
type MockStore struct {
	mu          sync.RWMutex
	credentials map[string]*Credential

	// Failure switches for testing fallback behaviour
	FailStore    bool
	FailRetrieve bool
	FailDelete   bool
}

// NewMockStore creates an in-memory credential store
func NewMockStore() *MockStore {
	return &MockStore{
		credentials: make(map[string]*Credential),
	}
}

// Store saves a credential in memory
func (m *MockStore) Store(cred *Credential) error {
	if m.FailStore {
		return ErrStoreUnavailable
	}
	if cred == nil || cred.Profile == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *cred
	m.credentials[cred.Profile] = &c
	return nil
}

// Retrieve gets a credential from memory
func (m *MockStore) Retrieve(profile string) (*Credential, error) {
	if m.FailRetrieve {
		return nil, ErrStoreUnavailable
	}
	if profile == "" {
		return nil, ErrInvalidCredentials
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, exists := m.credentials[profile]
	if !exists {
		return nil, ErrCredentialsNotFound
	}

	c := *cred
	return &c, nil
}

// List returns all stored credentials
func (m *MockStore) List() ([]*Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var creds []*Credential
	for _, cred := range m.credentials {
		c := *cred
		creds = append(creds, &c)
	}
	return creds, nil
}

// Delete removes a credential from memory
func (m *MockStore) Delete(profile string) error {
	if m.FailDelete {
		return ErrStoreUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.credentials[profile]; !exists {
		return ErrCredentialsNotFound
	}

	delete(m.credentials, profile)
	return nil
}

// Exists checks if a credential exists in memory
func (m *MockStore) Exists(profile string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.credentials[profile]
	return exists
}
