// Package provisioner orchestrates card provisioning against the issuing
// service: it ensures a user application exists, waits for the user's
// deposit contract on the target chain, issues at most one card per user,
// and reveals card secrets through the encrypted handshake on demand.
//
// Every stage is idempotent and safe to re-enter. Contract readiness is
// reported separately from card issuance because the two resources are
// independent on the issuer side; a contract that is still being deployed
// never blocks card creation.
package provisioner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cenkalti/backoff/v4"
	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/card-issuing-backend/cryptoutils"
	"github.com/ruteri/card-issuing-backend/interfaces"
	"github.com/ruteri/card-issuing-backend/issuer"
	"github.com/ruteri/card-issuing-backend/metrics"
	"github.com/ruteri/card-issuing-backend/retryutil"
)

const (
	// DefaultContractMaxRetries bounds deposit-contract polling: one
	// initial listing plus this many retries.
	DefaultContractMaxRetries = 5

	// cardListLimit is how many existing cards are considered when
	// deciding to reuse instead of create.
	cardListLimit = 20

	maxPANLength = 16
	maxCVCLength = 3
)

// ErrContractNotReady is returned when the issuer has not materialized the
// requested deposit contract, either on a single readiness query or after
// polling was exhausted. Contract readiness is non-fatal to card issuance.
var ErrContractNotReady = errors.New("deposit contract not ready")

// CardNotActivatableError is returned when secrets were requested for a
// card that is not active and could not be activated.
type CardNotActivatableError struct {
	Status interfaces.CardStatus
}

func (e *CardNotActivatableError) Error() string {
	switch e.Status {
	case interfaces.CardStatusPending:
		return "card is still pending issuance, try again shortly"
	default:
		return fmt.Sprintf("card is %s and needs activation or funding before secrets can be revealed", e.Status)
	}
}

// Config assembles a Provisioner's collaborators. Client and Store are
// required; everything else has working defaults.
type Config struct {
	Client interfaces.IssuerClient
	Store  interfaces.CardStore
	Log    *slog.Logger

	// SecretsPublicKey is the issuer's PEM-encoded RSA key for the secrets
	// handshake. Defaults to issuer.SecretsPublicKeyPEM.
	SecretsPublicKey []byte

	// ContractMaxRetries overrides DefaultContractMaxRetries when non-zero.
	ContractMaxRetries uint64

	// NewBackOff supplies the polling delay policy, one instance per poll
	// loop. Defaults to retryutil.NewExponentialBackOff.
	NewBackOff func() backoff.BackOff
}

// CardOptions carries the caller's card-creation preferences. Zero values
// select the service defaults.
type CardOptions struct {
	DisplayName string
	LimitAmount int64
}

// Result is what Provision returns: the issued (or reused) card together
// with the deposit contract state on the requested chain.
type Result struct {
	Card          *interfaces.Card            `json:"card"`
	Contract      *interfaces.DepositContract `json:"contract,omitempty"`
	ContractReady bool                        `json:"contractReady"`
}

// Provisioner runs the card-provisioning workflow. It is safe for
// concurrent use; card issuance is serialized per user so that two
// concurrent requests for the same user cannot both miss the store and
// create duplicate cards.
type Provisioner struct {
	client             interfaces.IssuerClient
	store              interfaces.CardStore
	log                *slog.Logger
	secretsKey         []byte
	contractMaxRetries uint64
	newBackOff         func() backoff.BackOff

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates a Provisioner from cfg.
func New(cfg Config) (*Provisioner, error) {
	if cfg.Client == nil {
		return nil, errors.New("issuer client is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("card store is required")
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	secretsKey := cfg.SecretsPublicKey
	if len(secretsKey) == 0 {
		secretsKey = []byte(issuer.SecretsPublicKeyPEM)
	}

	maxRetries := cfg.ContractMaxRetries
	if maxRetries == 0 {
		maxRetries = DefaultContractMaxRetries
	}

	newBackOff := cfg.NewBackOff
	if newBackOff == nil {
		newBackOff = retryutil.NewExponentialBackOff
	}

	return &Provisioner{
		client:             cfg.Client,
		store:              cfg.Store,
		log:                log,
		secretsKey:         secretsKey,
		contractMaxRetries: maxRetries,
		newBackOff:         newBackOff,
		userLocks:          make(map[string]*sync.Mutex),
	}, nil
}

// lockUser serializes card issuance for one user within this process.
func (p *Provisioner) lockUser(userID string) func() {
	p.mu.Lock()
	lock, ok := p.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		p.userLocks[userID] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// EnsureUser submits a user application. A duplicate-application rejection
// from the issuer is treated as success and returns a nil user; the
// application state can then be read via the issuer client.
func (p *Provisioner) EnsureUser(ctx context.Context, profile map[string]any) (*interfaces.User, error) {
	user, err := p.client.CreateUserApplication(ctx, profile)
	if err != nil {
		var apiErr *issuer.APIError
		if errors.As(err, &apiErr) && apiErr.IsAlreadyExists() {
			p.log.Debug("User application already exists", slog.Int("status", apiErr.StatusCode))
			metrics.ObserveProvisioning("user", "reused")
			return nil, nil
		}
		metrics.ObserveProvisioning("user", "error")
		return nil, err
	}

	metrics.ObserveProvisioning("user", "created")
	return user, nil
}

// EnsureContract requests a deposit contract for (userID, chainID) and
// polls the user's contract listings until it appears. Create failures are
// logged but not fatal since the contract may already exist; the polling
// result decides the outcome. Exhausted polling returns an error wrapping
// ErrContractNotReady.
func (p *Provisioner) EnsureContract(ctx context.Context, userID string, chainID interfaces.ChainID) (*interfaces.DepositContract, error) {
	if err := p.client.CreateDepositContract(ctx, userID, chainID); err != nil {
		p.log.Warn("Deposit contract create call failed, polling anyway",
			slog.String("user_id", userID),
			slog.Int64("chain_id", int64(chainID)),
			"err", err)
	}

	contract, err := retryutil.DoWithBackOff(ctx, p.contractMaxRetries, p.newBackOff(), func() (*interfaces.DepositContract, error) {
		contracts, listErr := p.client.ListDepositContracts(ctx, userID)
		if listErr != nil {
			return nil, listErr
		}
		for i := range contracts {
			if contracts[i].ChainID == chainID {
				return &contracts[i], nil
			}
		}
		return nil, fmt.Errorf("%w: user %s has no contract on chain %d", ErrContractNotReady, userID, chainID)
	})
	if err != nil {
		metrics.ObserveProvisioning("contract", "not_ready")
		return nil, err
	}

	if err := normalizeDepositAddress(contract); err != nil {
		metrics.ObserveProvisioning("contract", "invalid")
		return nil, err
	}

	metrics.ObserveProvisioning("contract", "ready")
	return contract, nil
}

// ContractFor is the readiness query: one listing call, no polling.
// Returns an error wrapping ErrContractNotReady when the contract has not
// appeared yet.
func (p *Provisioner) ContractFor(ctx context.Context, userID string, chainID interfaces.ChainID) (*interfaces.DepositContract, error) {
	contracts, err := p.client.ListDepositContracts(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range contracts {
		if contracts[i].ChainID == chainID {
			if err := normalizeDepositAddress(&contracts[i]); err != nil {
				return nil, err
			}
			return &contracts[i], nil
		}
	}
	return nil, fmt.Errorf("%w: user %s has no contract on chain %d", ErrContractNotReady, userID, chainID)
}

// EnsureCard returns the user's working card, creating one only if neither
// the store nor the issuer knows of an existing card. The issuer listing
// check guards against duplicate issuance across process restarts where
// the store was lost.
func (p *Provisioner) EnsureCard(ctx context.Context, userID string, opts CardOptions) (*interfaces.Card, error) {
	unlock := p.lockUser(userID)
	defer unlock()

	cardID, err := p.store.Get(ctx, userID)
	switch {
	case err == nil:
		card, getErr := p.client.GetCard(ctx, cardID)
		if getErr != nil {
			return nil, getErr
		}
		metrics.ObserveProvisioning("card", "reused")
		return card, nil
	case !errors.Is(err, interfaces.ErrCardNotRecorded):
		// A degraded store must not block issuance; the issuer listing
		// below is the fallback truth.
		p.log.Warn("Card store lookup failed",
			slog.String("user_id", userID),
			"err", err)
	}

	cards, err := p.client.ListCards(ctx, userID, cardListLimit)
	if err != nil {
		p.log.Warn("Could not list existing cards",
			slog.String("user_id", userID),
			"err", err)
	} else if len(cards) > 0 {
		existing := &cards[0]
		p.rememberCard(ctx, userID, existing.ID)
		metrics.ObserveProvisioning("card", "adopted")
		return existing, nil
	}

	card, err := p.client.CreateCard(ctx, userID, interfaces.CardRequest{
		DisplayName: opts.DisplayName,
		LimitAmount: opts.LimitAmount,
		Status:      interfaces.CardStatusActive,
	})
	if err != nil {
		metrics.ObserveProvisioning("card", "error")
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("issuer returned no card for user %s", userID)
	}

	p.rememberCard(ctx, userID, card.ID)
	metrics.ObserveProvisioning("card", "created")
	return card, nil
}

// Provision runs the full workflow for a user that already has an
// application: ensure the deposit contract on chainID (non-fatal when the
// issuer is slow to materialize it) and ensure the working card. The
// caller is responsible for having completed EnsureUser first.
func (p *Provisioner) Provision(ctx context.Context, userID string, chainID interfaces.ChainID, opts CardOptions) (*Result, error) {
	res := &Result{}

	contract, err := p.EnsureContract(ctx, userID, chainID)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		p.log.Warn("Deposit contract not ready, continuing with card issuance",
			slog.String("user_id", userID),
			slog.Int64("chain_id", int64(chainID)),
			"err", err)
	} else {
		res.Contract = contract
		res.ContractReady = true
	}

	card, err := p.EnsureCard(ctx, userID, opts)
	if err != nil {
		return nil, err
	}
	res.Card = card
	return res, nil
}

// RevealSecrets fetches and decrypts the card's PAN and CVC. A card that
// is not active gets exactly one activation attempt; if that does not
// leave it active the call fails with *CardNotActivatableError and no
// secrets are requested. The session key lives only for this call.
func (p *Provisioner) RevealSecrets(ctx context.Context, cardID string) (*interfaces.CardSecrets, error) {
	card, err := p.client.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, fmt.Errorf("issuer returned no card %s", cardID)
	}

	if card.Status != interfaces.CardStatusActive {
		activated, actErr := p.client.ActivateCard(ctx, cardID)
		if actErr != nil {
			p.log.Warn("Card activation failed",
				slog.String("card_id", cardID),
				slog.String("status", string(card.Status)),
				"err", actErr)
			return nil, &CardNotActivatableError{Status: card.Status}
		}
		if activated != nil && activated.Status != interfaces.CardStatusActive {
			return nil, &CardNotActivatableError{Status: activated.Status}
		}
	}

	session, err := cryptoutils.NewSecretsSession(p.secretsKey, "")
	if err != nil {
		return nil, err
	}

	encrypted, err := p.client.CardSecrets(ctx, cardID, session.SessionID)
	if err != nil {
		return nil, err
	}

	pan, err := cryptoutils.DecryptSecretBlock(encrypted.EncryptedPan.Data, encrypted.EncryptedPan.IV, session.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("decrypting card number: %w", err)
	}
	cvc, err := cryptoutils.DecryptSecretBlock(encrypted.EncryptedCvc.Data, encrypted.EncryptedCvc.IV, session.KeyHex)
	if err != nil {
		return nil, fmt.Errorf("decrypting cvc: %w", err)
	}

	if len(pan) > maxPANLength {
		pan = pan[:maxPANLength]
	}
	if len(cvc) > maxCVCLength {
		cvc = cvc[:maxCVCLength]
	}

	return &interfaces.CardSecrets{CardNumber: pan, CVC: cvc}, nil
}

// rememberCard records the issued card id. Store failures are logged, not
// returned: the card exists on the issuer side and the next EnsureCard
// adopts it from the listing.
func (p *Provisioner) rememberCard(ctx context.Context, userID, cardID string) {
	if err := p.store.Set(ctx, userID, cardID); err != nil {
		p.log.Warn("Failed to record issued card",
			slog.String("user_id", userID),
			slog.String("card_id", cardID),
			"err", err)
	}
}

// normalizeDepositAddress validates the issuer-reported deposit address as
// an EVM address and rewrites it in checksum form.
func normalizeDepositAddress(contract *interfaces.DepositContract) error {
	if !ethcommon.IsHexAddress(contract.DepositAddress) {
		return fmt.Errorf("issuer returned invalid deposit address %q for contract %s", contract.DepositAddress, contract.ID)
	}
	contract.DepositAddress = ethcommon.HexToAddress(contract.DepositAddress).Hex()
	return nil
}
