package auth

import (
	"os"
	"time"
)

// EnvAPIKey is the environment variable holding the API key
const EnvAPIKey = "COMPANIES_HOUSE_API_KEY"

// EnvironmentStore implements CredentialStore using environment variables.
// It is read-only and always maps to the default profile.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve gets the API key from the environment
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, ErrCredentialsNotFound
	}

	if profile == "" {
		profile = DefaultProfile
	}

	return &Credential{
		Profile:      profile,
		APIKey:       apiKey,
		LastModified: time.Now(),
	}, nil
}

// List returns a single credential if the environment variable is set
func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve("")
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment variable is set
func (e *EnvironmentStore) Exists(profile string) bool {
	return os.Getenv(EnvAPIKey) != ""
}
