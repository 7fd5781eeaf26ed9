package credential

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/pilacorp/go-oid4vc-sdk/oid4vc/presexch"
)

// ErrNotFound is returned when no credential is stored under an id.
var ErrNotFound = errors.New("credential not found")

// CredentialStore holds a holder's credentials in a thread-safe manner. Its
// contents feed Provider.GenerateResponse.
type CredentialStore struct {
	credentials map[string]*presexch.Credential
	mu          sync.RWMutex
}

// NewCredentialStore initializes a new CredentialStore
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		credentials: make(map[string]*presexch.Credential),
	}
}

// AddCredential stores cred under id, replacing any previous credential.
func (s *CredentialStore) AddCredential(id string, cred *presexch.Credential) error {
	if id == "" || cred == nil || cred.Value == nil {
		return errors.New("id and credential cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[id] = cred

	return nil
}

// Import parses raw (a compact JWT VC or a JSON-LD credential) and stores it
// under id.
func (s *CredentialStore) Import(id string, raw []byte) (*presexch.Credential, error) {
	cred, err := presexch.ParseCredential(raw)
	if err != nil {
		return nil, fmt.Errorf("import credential %q: %w", id, err)
	}

	if err := s.AddCredential(id, cred); err != nil {
		return nil, err
	}

	return cred, nil
}

// GetCredential retrieves a credential by id
func (s *CredentialStore) GetCredential(id string) (*presexch.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, exists := s.credentials[id]
	if !exists {
		return nil, ErrNotFound
	}

	return cred, nil
}

// DeleteCredential removes a credential by id
func (s *CredentialStore) DeleteCredential(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credentials[id]; !exists {
		return ErrNotFound
	}

	delete(s.credentials, id)

	return nil
}

// IDs returns the stored ids in sorted order.
func (s *CredentialStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.credentials))
	for id := range s.credentials {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// Credentials returns a snapshot of the stored credentials ordered by id.
func (s *CredentialStore) Credentials() []*presexch.Credential {
	ids := s.IDs()

	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := make([]*presexch.Credential, 0, len(ids))
	for _, id := range ids {
		if cred, ok := s.credentials[id]; ok {
			creds = append(creds, cred)
		}
	}

	return creds
}
