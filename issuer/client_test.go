package issuer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClientSendsAPIKeyHeader(t *testing.T) {
	var gotKey, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Api-Key")
		gotAccept = r.Header.Get("Accept")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(interfaces.User{ID: "user-1"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())
	user, err := client.GetUserApplication(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "user-1", user.ID)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClientMissingAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request must not reach the network without an API key")
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", testLogger())
	_, err := client.GetUserApplication(context.Background(), "user-1")
	assert.ErrorIs(t, err, interfaces.ErrMissingAPIKey)
}

func TestClientEmptyBodySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())

	// Empty success bodies decode to nothing; methods report a nil result.
	user, err := client.GetUserApplication(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Nil(t, user)

	card, err := client.ActivateCard(context.Background(), "card-1")
	require.NoError(t, err)
	assert.Nil(t, card)

	err = client.CreateDepositContract(context.Background(), "user-1", 84532)
	assert.NoError(t, err)
}

func TestClientNonJSONBodySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("created"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())
	user, err := client.CreateUserApplication(context.Background(), map[string]any{"email": "a@b.c"})
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid application"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())
	_, err := client.CreateUserApplication(context.Background(), nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid application")
	assert.Contains(t, apiErr.Endpoint, "/issuing/applications/user")
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewClient(srv.URL, "test-key", testLogger())
	_, err := client.ListCards(context.Background(), "user-1", 5)
	assert.ErrorIs(t, err, interfaces.ErrIssuerUnavailable)
}

func TestClientCreateCardDefaults(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(interfaces.Card{ID: "card-1", Status: interfaces.CardStatusActive})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())
	card, err := client.CreateCard(context.Background(), "user-1", interfaces.CardRequest{})
	require.NoError(t, err)
	require.NotNil(t, card)

	assert.Equal(t, "virtual", got["type"])
	assert.Equal(t, "active", got["status"])
	limit, ok := got["limit"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "allTime", limit["frequency"])
	assert.Equal(t, float64(1000), limit["amount"])
}

func TestClientUserBalancesConvertsCents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"creditLimit":100000,"pendingCharges":2550,"postedCharges":1000,"balanceDue":3550,"spendingPower":96450}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())
	balances, err := client.UserBalances(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1000.0, balances.CreditLimit)
	assert.Equal(t, 25.50, balances.PendingCharges)
	assert.Equal(t, 10.0, balances.PostedCharges)
	assert.Equal(t, 35.50, balances.BalanceDue)
	assert.Equal(t, 964.50, balances.SpendingPower)
}

func TestClientCardSecretsSessionHeader(t *testing.T) {
	var gotSession string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSession = r.Header.Get(SessionIDHeader)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(interfaces.EncryptedCardSecrets{
			EncryptedPan: interfaces.EncryptedSecretBlock{Data: "cGFu", IV: "aXY="},
			EncryptedCvc: interfaces.EncryptedSecretBlock{Data: "Y3Zj", IV: "aXY="},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())
	secrets, err := client.CardSecrets(context.Background(), "card-1", "wrapped-session-key")
	require.NoError(t, err)

	assert.Equal(t, "wrapped-session-key", gotSession)
	assert.Equal(t, "cGFu", secrets.EncryptedPan.Data)
	assert.Equal(t, "Y3Zj", secrets.EncryptedCvc.Data)
}

func TestClientListCardsQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"card-1"},{"id":"card-2"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", testLogger())
	cards, err := client.ListCards(context.Background(), "user-1", 20)
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Contains(t, gotQuery, "userId=user-1")
	assert.Contains(t, gotQuery, "limit=20")
}

func TestAPIErrorIsAlreadyExists(t *testing.T) {
	cases := []struct {
		name string
		err  APIError
		want bool
	}{
		{"conflict status", APIError{StatusCode: 409}, true},
		{"duplicate body", APIError{StatusCode: 422, Body: "application already exists"}, true},
		{"duplicate keyword", APIError{StatusCode: 400, Body: "duplicate user"}, true},
		{"plain validation error", APIError{StatusCode: 422, Body: "missing field email"}, false},
		{"server error with keyword", APIError{StatusCode: 500, Body: "already exists"}, false},
		{"not found", APIError{StatusCode: 404}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.IsAlreadyExists())
		})
	}
}

func TestAPIErrorIsNotFound(t *testing.T) {
	assert.True(t, (&APIError{StatusCode: 404}).IsNotFound())
	assert.False(t, (&APIError{StatusCode: 409}).IsNotFound())
}
