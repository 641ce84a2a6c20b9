package issuer

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

// MockClient implements interfaces.IssuerClient for testing. The behavior
// is determined by how the mock is configured in tests.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateUserApplication(ctx context.Context, profile map[string]any) (*interfaces.User, error) {
	args := m.Called(ctx, profile)
	user, _ := args.Get(0).(*interfaces.User)
	return user, args.Error(1)
}

func (m *MockClient) GetUserApplication(ctx context.Context, userID string) (*interfaces.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*interfaces.User)
	return user, args.Error(1)
}

func (m *MockClient) ListUsers(ctx context.Context, limit int) ([]interfaces.User, error) {
	args := m.Called(ctx, limit)
	users, _ := args.Get(0).([]interfaces.User)
	return users, args.Error(1)
}

func (m *MockClient) CreateDepositContract(ctx context.Context, userID string, chainID interfaces.ChainID) error {
	args := m.Called(ctx, userID, chainID)
	return args.Error(0)
}

func (m *MockClient) ListDepositContracts(ctx context.Context, userID string) ([]interfaces.DepositContract, error) {
	args := m.Called(ctx, userID)
	contracts, _ := args.Get(0).([]interfaces.DepositContract)
	return contracts, args.Error(1)
}

func (m *MockClient) CreateCard(ctx context.Context, userID string, req interfaces.CardRequest) (*interfaces.Card, error) {
	args := m.Called(ctx, userID, req)
	card, _ := args.Get(0).(*interfaces.Card)
	return card, args.Error(1)
}

func (m *MockClient) ListCards(ctx context.Context, userID string, limit int) ([]interfaces.Card, error) {
	args := m.Called(ctx, userID, limit)
	cards, _ := args.Get(0).([]interfaces.Card)
	return cards, args.Error(1)
}

func (m *MockClient) GetCard(ctx context.Context, cardID string) (*interfaces.Card, error) {
	args := m.Called(ctx, cardID)
	card, _ := args.Get(0).(*interfaces.Card)
	return card, args.Error(1)
}

func (m *MockClient) ActivateCard(ctx context.Context, cardID string) (*interfaces.Card, error) {
	args := m.Called(ctx, cardID)
	card, _ := args.Get(0).(*interfaces.Card)
	return card, args.Error(1)
}

func (m *MockClient) UserBalances(ctx context.Context, userID string) (*interfaces.CreditBalances, error) {
	args := m.Called(ctx, userID)
	balances, _ := args.Get(0).(*interfaces.CreditBalances)
	return balances, args.Error(1)
}

func (m *MockClient) CardBalance(ctx context.Context, cardID string) (*interfaces.CardBalance, error) {
	args := m.Called(ctx, cardID)
	balance, _ := args.Get(0).(*interfaces.CardBalance)
	return balance, args.Error(1)
}

func (m *MockClient) CardSecrets(ctx context.Context, cardID, sessionID string) (*interfaces.EncryptedCardSecrets, error) {
	args := m.Called(ctx, cardID, sessionID)
	secrets, _ := args.Get(0).(*interfaces.EncryptedCardSecrets)
	return secrets, args.Error(1)
}
