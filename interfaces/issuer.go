package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrMissingAPIKey is returned on the first issuer call when no API key
	// was configured. It is a fatal configuration error and never retried.
	ErrMissingAPIKey = errors.New("issuer API key is not configured")

	// ErrIssuerUnavailable wraps transport-level failures reaching the
	// issuing service. Retrying is the caller's decision; the client itself
	// never retries.
	ErrIssuerUnavailable = errors.New("issuing service unavailable")
)

// IssuerClient is the typed RPC surface of the remote card-issuing service.
// Implementations carry no business policy: every method is a single
// request/response pair, failing with ErrIssuerUnavailable on transport
// errors and *issuer.APIError on non-success statuses. Methods returning a
// pointer return nil (and a nil error) when the issuer answers with an
// empty success body.
type IssuerClient interface {
	// CreateUserApplication submits a user application with an arbitrary
	// profile payload.
	CreateUserApplication(ctx context.Context, profile map[string]any) (*User, error)

	// GetUserApplication returns the current application state for a user.
	GetUserApplication(ctx context.Context, userID string) (*User, error)

	// ListUsers lists issuer users, at most limit entries.
	ListUsers(ctx context.Context, limit int) ([]User, error)

	// CreateDepositContract requests a deposit contract for the user on the
	// given chain. The issuer provisions it asynchronously; a successful
	// return does not mean the contract exists yet.
	CreateDepositContract(ctx context.Context, userID string, chainID ChainID) error

	// ListDepositContracts lists all deposit contracts for the user.
	ListDepositContracts(ctx context.Context, userID string) ([]DepositContract, error)

	// CreateCard creates a virtual card for the user.
	CreateCard(ctx context.Context, userID string, req CardRequest) (*Card, error)

	// ListCards lists the user's cards, at most limit entries.
	ListCards(ctx context.Context, userID string, limit int) ([]Card, error)

	// GetCard returns the masked card snapshot.
	GetCard(ctx context.Context, cardID string) (*Card, error)

	// ActivateCard patches the card status to active.
	ActivateCard(ctx context.Context, cardID string) (*Card, error)

	// UserBalances returns the user's credit balances in dollars.
	UserBalances(ctx context.Context, userID string) (*CreditBalances, error)

	// CardBalance returns a single card's balance in dollars.
	CardBalance(ctx context.Context, cardID string) (*CardBalance, error)

	// CardSecrets fetches the encrypted PAN/CVC blocks. sessionID is the
	// RSA-wrapped session key established by the crypto handshake and is
	// sent as the issuer's session header.
	CardSecrets(ctx context.Context, cardID, sessionID string) (*EncryptedCardSecrets, error)
}
