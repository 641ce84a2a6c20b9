package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

// VaultStore is a card store backed by HashiCorp Vault's KV v2 secrets
// engine. Each user's card id is kept as a secret under the configured
// mount and path.
type VaultStore struct {
	client      *vaultapi.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// NewVaultStore creates a Vault-backed card store.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path within the mount (e.g. "card-issuing")
//   - token: Vault token; empty falls back to the client's environment
//   - log: structured logger for operational insights
func NewVaultStore(address, mountPath, dataPath, token string, log *slog.Logger) (*VaultStore, error) {
	config := vaultapi.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := vaultapi.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultStore{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", address, mountPath, dataPath),
	}, nil
}

func (s *VaultStore) Get(ctx context.Context, userID string) (string, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.secretPath(userID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return "", interfaces.ErrCardNotRecorded
	}

	// KV v2 nests the payload under a "data" key.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", interfaces.ErrCardNotRecorded
	}
	cardID, ok := data["card_id"].(string)
	if !ok || cardID == "" {
		return "", interfaces.ErrCardNotRecorded
	}
	return cardID, nil
}

func (s *VaultStore) Set(ctx context.Context, userID, cardID string) error {
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"card_id": cardID,
		},
	}

	if _, err := s.client.Logical().WriteWithContext(ctx, s.secretPath(userID), payload); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Recorded card in Vault store",
		slog.String("path", s.secretPath(userID)))
	return nil
}

// Available checks Vault's health endpoint.
func (s *VaultStore) Available(ctx context.Context) bool {
	health, err := s.client.Sys().HealthWithContext(ctx)
	if err != nil {
		s.log.Debug("Vault store unavailable", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s", s.mountPath)
}

// LocationURI returns the URI that identifies this store backend.
func (s *VaultStore) LocationURI() string {
	return s.locationURI
}

func (s *VaultStore) secretPath(userID string) string {
	return fmt.Sprintf("%s/data/%s/cards/%s", s.mountPath, s.dataPath, userID)
}
