// Package credstore persists the single active session record. The
// record holds the account identifier, the signing key and the last
// reconciled account view; the signing key never leaves this boundary
// through logs or diagnostics.
package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hbar-desk/go-client/internal/securestore"
	"hbar-desk/go-client/pkg/models"
)

const recordFileName = "session.json"

var ErrCorruptSession = errors.New("persisted session record is corrupt")

// Record is the serialized session boundary: exactly one exists at a
// time under the fixed storage path; absence means no session.
type Record struct {
	AccountID  string                `json:"account_id"`
	SigningKey string                `json:"signing_key"`
	Balance    string                `json:"balance"`
	Tokens     []models.TokenBalance `json:"tokens"`
}

func (r Record) Session() models.Session {
	return models.Session{AccountID: r.AccountID, SigningKey: r.SigningKey}
}

type Store struct {
	mu         sync.Mutex
	path       string
	passphrase string
}

// New stores the session record under dataDir. When passphrase is
// non-empty the record is sealed at rest.
func New(dataDir, passphrase string) *Store {
	return &Store{path: filepath.Join(dataDir, recordFileName), passphrase: passphrase}
}

// Load returns the persisted record, or (nil, nil) when no session is
// stored.
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if s.passphrase != "" {
		data, err = securestore.Open(s.passphrase, data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
		}
	} else if securestore.IsSealed(data) {
		return nil, fmt.Errorf("%w: record is sealed but no passphrase is configured", ErrCorruptSession)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if rec.AccountID == "" || rec.SigningKey == "" {
		return nil, fmt.Errorf("%w: missing credentials", ErrCorruptSession)
	}
	return &rec, nil
}

// Save overwrites any prior session record. Idempotent; the write is
// atomic via a temp file swap so a crash never leaves a torn record.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if s.passphrase != "" {
		data, err = securestore.Seal(s.passphrase, data)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear removes the persisted record. No-op when absent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
