package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ruteri/card-issuing-backend/cryptoutils"
	"github.com/ruteri/card-issuing-backend/interfaces"
)

// FileStore is a card store backed by a single JSON file on the local file
// system. When a passphrase is supplied the file is encrypted at rest with
// AES-GCM under an Argon2id-derived key.
type FileStore struct {
	path        string
	key         []byte
	mu          sync.Mutex
	log         *slog.Logger
	locationURI string
}

// NewFileStore creates a file-backed card store at path. An empty
// passphrase stores records in the clear.
func NewFileStore(path, passphrase string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	var key []byte
	if passphrase != "" {
		key = cryptoutils.DeriveStoreKey([]byte(passphrase), []byte("card-store:"+path))
	}

	return &FileStore{
		path:        path,
		key:         key,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

func (s *FileStore) Get(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.load()
	if err != nil {
		return "", err
	}

	cardID, ok := cards[userID]
	if !ok {
		return "", interfaces.ErrCardNotRecorded
	}
	return cardID, nil
}

func (s *FileStore) Set(ctx context.Context, userID, cardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards, err := s.load()
	if err != nil {
		return err
	}
	cards[userID] = cardID

	data, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("failed to encode card records: %w", err)
	}

	if s.key != nil {
		data, err = cryptoutils.SealWithKey(s.key, data)
		if err != nil {
			return fmt.Errorf("failed to encrypt card records: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write card records: %w", err)
	}

	s.log.Debug("Recorded card in file store",
		slog.String("path", s.path),
		slog.String("user_id", userID))
	return nil
}

// Available checks if the store directory is accessible.
func (s *FileStore) Available(ctx context.Context) bool {
	_, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		s.log.Debug("File store unavailable", "err", err)
		return false
	}
	return true
}

func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.path))
}

// LocationURI returns the URI that identifies this store backend.
func (s *FileStore) LocationURI() string {
	return s.locationURI
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read card records: %w", err)
	}

	if s.key != nil {
		data, err = cryptoutils.OpenWithKey(s.key, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt card records: %w", err)
		}
	}

	cards := make(map[string]string)
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to decode card records: %w", err)
	}
	return cards, nil
}
