package issuer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/card-issuing-backend/interfaces"
	"github.com/ruteri/card-issuing-backend/metrics"
)

const (
	defaultUserListLimit = 100
	defaultCardListLimit = 20

	// maxResponseSize bounds issuer response bodies (1MB).
	maxResponseSize = 1024 * 1024
)

// Client is an interfaces.IssuerClient backed by the issuing service's
// HTTPS API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates an issuer client. An empty baseURL selects the sandbox
// endpoint. A missing API key is not an error here; it surfaces as
// interfaces.ErrMissingAPIKey on the first call.
func NewClient(baseURL, apiKey string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// do performs one issuer exchange. A nil out, a non-JSON content type, or
// an empty body on success all leave out untouched, mirroring the issuer's
// habit of returning empty bodies on some success codes.
func (c *Client) do(ctx context.Context, operation, method, path string, headers map[string]string, body, out any) error {
	if c.apiKey == "" {
		return interfaces.ErrMissingAPIKey
	}

	endpoint := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request for %s: %w", endpoint, err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return err
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveIssuerCall(operation, 0)
		return fmt.Errorf("%w: %v", interfaces.ErrIssuerUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.ObserveIssuerCall(operation, resp.StatusCode)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response from %s: %v", interfaces.ErrIssuerUnavailable, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw), Endpoint: endpoint}
	}

	if out == nil {
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("could not parse response from %s: %w", endpoint, err)
	}
	return nil
}

// CreateUserApplication submits a user application with the given profile.
func (c *Client) CreateUserApplication(ctx context.Context, profile map[string]any) (*interfaces.User, error) {
	var user interfaces.User
	err := c.do(ctx, "create_user_application", http.MethodPost, "/issuing/applications/user", nil, profile, &user)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, nil
	}
	return &user, nil
}

// GetUserApplication returns the application state for a user.
func (c *Client) GetUserApplication(ctx context.Context, userID string) (*interfaces.User, error) {
	var user interfaces.User
	path := fmt.Sprintf("/issuing/applications/user/%s", url.PathEscape(userID))
	if err := c.do(ctx, "get_user_application", http.MethodGet, path, nil, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, nil
	}
	return &user, nil
}

// ListUsers lists issuer users.
func (c *Client) ListUsers(ctx context.Context, limit int) ([]interfaces.User, error) {
	if limit <= 0 {
		limit = defaultUserListLimit
	}
	var users []interfaces.User
	path := fmt.Sprintf("/issuing/users?limit=%d", limit)
	if err := c.do(ctx, "list_users", http.MethodGet, path, nil, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateDepositContract requests a deposit contract for (userID, chainID).
// The issuer provisions the contract asynchronously and may answer with an
// empty body.
func (c *Client) CreateDepositContract(ctx context.Context, userID string, chainID interfaces.ChainID) error {
	body := struct {
		ChainID interfaces.ChainID `json:"chainId"`
	}{ChainID: chainID}
	path := fmt.Sprintf("/issuing/users/%s/contracts", url.PathEscape(userID))
	return c.do(ctx, "create_deposit_contract", http.MethodPost, path, nil, body, nil)
}

// ListDepositContracts lists all deposit contracts for a user.
func (c *Client) ListDepositContracts(ctx context.Context, userID string) ([]interfaces.DepositContract, error) {
	var contracts []interfaces.DepositContract
	path := fmt.Sprintf("/issuing/users/%s/contracts", url.PathEscape(userID))
	if err := c.do(ctx, "list_deposit_contracts", http.MethodGet, path, nil, nil, &contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

type cardLimit struct {
	Frequency string `json:"frequency"`
	Amount    int64  `json:"amount"`
}

type createCardRequest struct {
	Type        string                `json:"type"`
	Limit       cardLimit             `json:"limit"`
	DisplayName string                `json:"displayName,omitempty"`
	Status      interfaces.CardStatus `json:"status"`
}

// CreateCard creates a virtual card for the user. Zero-valued request
// fields fall back to an allTime limit of 1000 and status active.
func (c *Client) CreateCard(ctx context.Context, userID string, req interfaces.CardRequest) (*interfaces.Card, error) {
	amount := req.LimitAmount
	if amount <= 0 {
		amount = 1000
	}
	status := req.Status
	if status == "" {
		status = interfaces.CardStatusActive
	}

	body := createCardRequest{
		Type:        "virtual",
		Limit:       cardLimit{Frequency: "allTime", Amount: amount},
		DisplayName: req.DisplayName,
		Status:      status,
	}

	var card interfaces.Card
	path := fmt.Sprintf("/issuing/users/%s/cards", url.PathEscape(userID))
	if err := c.do(ctx, "create_card", http.MethodPost, path, nil, body, &card); err != nil {
		return nil, err
	}
	if card.ID == "" {
		return nil, nil
	}
	return &card, nil
}

// ListCards lists the user's cards.
func (c *Client) ListCards(ctx context.Context, userID string, limit int) ([]interfaces.Card, error) {
	if limit <= 0 {
		limit = defaultCardListLimit
	}
	query := url.Values{}
	query.Set("userId", userID)
	query.Set("limit", fmt.Sprintf("%d", limit))

	var cards []interfaces.Card
	if err := c.do(ctx, "list_cards", http.MethodGet, "/issuing/cards?"+query.Encode(), nil, nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// GetCard returns the masked card snapshot.
func (c *Client) GetCard(ctx context.Context, cardID string) (*interfaces.Card, error) {
	var card interfaces.Card
	path := fmt.Sprintf("/issuing/cards/%s", url.PathEscape(cardID))
	if err := c.do(ctx, "get_card", http.MethodGet, path, nil, nil, &card); err != nil {
		return nil, err
	}
	if card.ID == "" {
		return nil, nil
	}
	return &card, nil
}

// ActivateCard patches the card status to active. The issuer may answer
// with an empty body, in which case a nil card is returned.
func (c *Client) ActivateCard(ctx context.Context, cardID string) (*interfaces.Card, error) {
	body := struct {
		Status interfaces.CardStatus `json:"status"`
	}{Status: interfaces.CardStatusActive}

	var card interfaces.Card
	path := fmt.Sprintf("/issuing/cards/%s", url.PathEscape(cardID))
	if err := c.do(ctx, "activate_card", http.MethodPatch, path, nil, body, &card); err != nil {
		return nil, err
	}
	if card.ID == "" {
		return nil, nil
	}
	return &card, nil
}

// rawCreditBalances are the issuer's integer-cents fields. Decoded as
// floats so an unexpected non-integer value degrades to its value rather
// than a decode failure.
type rawCreditBalances struct {
	CreditLimit    float64 `json:"creditLimit"`
	PendingCharges float64 `json:"pendingCharges"`
	PostedCharges  float64 `json:"postedCharges"`
	BalanceDue     float64 `json:"balanceDue"`
	SpendingPower  float64 `json:"spendingPower"`
}

// UserBalances returns the user's credit balances, converted from cents to
// dollars.
func (c *Client) UserBalances(ctx context.Context, userID string) (*interfaces.CreditBalances, error) {
	var raw rawCreditBalances
	path := fmt.Sprintf("/issuing/users/%s/balances", url.PathEscape(userID))
	if err := c.do(ctx, "user_balances", http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	return &interfaces.CreditBalances{
		CreditLimit:    raw.CreditLimit / 100,
		PendingCharges: raw.PendingCharges / 100,
		PostedCharges:  raw.PostedCharges / 100,
		BalanceDue:     raw.BalanceDue / 100,
		SpendingPower:  raw.SpendingPower / 100,
	}, nil
}

// CardBalance returns a single card's balance, converted to dollars.
func (c *Client) CardBalance(ctx context.Context, cardID string) (*interfaces.CardBalance, error) {
	var raw struct {
		Currency  string  `json:"currency"`
		Available float64 `json:"available"`
		Current   float64 `json:"current"`
	}
	path := fmt.Sprintf("/issuing/cards/%s/balance", url.PathEscape(cardID))
	if err := c.do(ctx, "card_balance", http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	currency := raw.Currency
	if currency == "" {
		currency = "USD"
	}
	return &interfaces.CardBalance{
		Currency:  currency,
		Available: raw.Available / 100,
		Current:   raw.Current / 100,
	}, nil
}

// CardSecrets fetches the encrypted PAN/CVC blocks for a card. sessionID is
// the RSA-wrapped session key from cryptoutils.NewSecretsSession.
func (c *Client) CardSecrets(ctx context.Context, cardID, sessionID string) (*interfaces.EncryptedCardSecrets, error) {
	var secrets interfaces.EncryptedCardSecrets
	path := fmt.Sprintf("/issuing/cards/%s/secrets", url.PathEscape(cardID))
	headers := map[string]string{SessionIDHeader: sessionID}
	if err := c.do(ctx, "card_secrets", http.MethodGet, path, headers, nil, &secrets); err != nil {
		return nil, err
	}
	return &secrets, nil
}
