package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

// StoreFactory creates card stores from location URIs and assembles
// multi-store configurations for redundant persistence.
type StoreFactory struct {
	log *slog.Logger
}

// NewStoreFactory creates a new factory instance.
func NewStoreFactory(log *slog.Logger) *StoreFactory {
	return &StoreFactory{log: log}
}

// StoreFor creates a card store from a location URI.
//
// Supported schemes:
//   - mem:// - In-process memory store
//   - file:///path/to/store.json?passphrase=... - Local file store,
//     encrypted at rest when a passphrase is given
//   - s3://bucket/prefix?region=...&endpoint=...&access-key=...&secret-key=... -
//     Amazon S3 or compatible object storage
//   - vault://host:port/mount/path?scheme=https&token=... - HashiCorp Vault
//     KV v2; the token falls back to the VAULT_TOKEN environment variable
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *StoreFactory) StoreFor(locationURI string) (interfaces.CardStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("invalid store URI %q: %w", locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "mem":
		return NewMemoryStore(), nil
	case "file":
		return f.createFileStore(u)
	case "s3":
		return f.createS3Store(u)
	case "vault":
		return f.createVaultStore(u)
	default:
		return nil, fmt.Errorf("unsupported card store scheme: %s", u.Scheme)
	}
}

// CreateMultiStore creates a multi-store from a list of location URIs.
// URIs that fail to resolve are skipped with a warning; an error is
// returned only if no valid store could be created.
func (f *StoreFactory) CreateMultiStore(locationURIs []string) (interfaces.CardStore, error) {
	stores := make([]interfaces.CardStore, 0, len(locationURIs))

	for _, uri := range locationURIs {
		store, err := f.StoreFor(uri)
		if err != nil {
			f.log.Warn("Failed to create card store",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		stores = append(stores, store)
	}

	if len(stores) == 0 {
		return nil, fmt.Errorf("no valid card stores created")
	}
	if len(stores) == 1 {
		return stores[0], nil
	}
	return NewMultiStore(stores, f.log), nil
}

func (f *StoreFactory) createFileStore(u *url.URL) (interfaces.CardStore, error) {
	f.log.Debug("Creating file card store", slog.String("uri", u.Redacted()))

	if u.Path == "" {
		return nil, fmt.Errorf("file store URI is missing a path")
	}
	return NewFileStore(u.Path, u.Query().Get("passphrase"), f.log)
}

func (f *StoreFactory) createS3Store(u *url.URL) (interfaces.CardStore, error) {
	f.log.Debug("Creating S3 card store", slog.String("uri", u.Redacted()))

	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("S3 store URI is missing a bucket name")
	}

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}

	return NewS3Store(
		bucket,
		strings.TrimPrefix(u.Path, "/"),
		region,
		query.Get("endpoint"),
		query.Get("access-key"),
		query.Get("secret-key"),
		f.log,
	)
}

func (f *StoreFactory) createVaultStore(u *url.URL) (interfaces.CardStore, error) {
	f.log.Debug("Creating Vault card store", slog.String("uri", u.Redacted()))

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid Vault URI format, expected vault://host:port/mount/path")
	}

	query := u.Query()
	scheme := query.Get("scheme")
	if scheme == "" {
		scheme = "https"
	}

	token := query.Get("token")
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}

	address := fmt.Sprintf("%s://%s", scheme, u.Host)
	return NewVaultStore(address, parts[0], parts[1], token, f.log)
}
