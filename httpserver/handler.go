package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ruteri/card-issuing-backend/interfaces"
	"github.com/ruteri/card-issuing-backend/issuer"
	"github.com/ruteri/card-issuing-backend/provisioner"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// Handler processes HTTP requests for the card issuing service. It drives
// the provisioning workflow and proxies read-only issuer queries.
type Handler struct {
	provisioner *provisioner.Provisioner
	client      interfaces.IssuerClient
	chainID     interfaces.ChainID
	log         *slog.Logger
}

// NewHandler creates a new HTTP request handler. chainID is the default
// chain for deposit contract provisioning.
func NewHandler(p *provisioner.Provisioner, client interfaces.IssuerClient, chainID interfaces.ChainID, log *slog.Logger) *Handler {
	return &Handler{
		provisioner: p,
		client:      client,
		chainID:     chainID,
		log:         log,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// writeIssuerError maps workflow and issuer errors onto HTTP statuses.
// Issuer API errors pass their status through so the caller sees what the
// upstream said.
func (h *Handler) writeIssuerError(w http.ResponseWriter, err error) {
	var apiErr *issuer.APIError
	var notActivatable *provisioner.CardNotActivatableError
	switch {
	case errors.As(err, &notActivatable):
		h.writeError(w, http.StatusConflict, notActivatable.Error())
	case errors.As(err, &apiErr):
		h.writeError(w, apiErr.StatusCode, apiErr.Error())
	case errors.Is(err, interfaces.ErrIssuerUnavailable):
		h.writeError(w, http.StatusBadGateway, "issuing service unavailable")
	case errors.Is(err, interfaces.ErrMissingAPIKey):
		h.writeError(w, http.StatusInternalServerError, "service misconfigured")
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// HandleCreateUser submits a user application to the issuer.
//
// URL format: POST /api/users
// Request body: arbitrary JSON application profile, forwarded as-is.
//
// Responds 200 with the created user, or 200 with {"status":"exists"}
// when an application for the profile already exists.
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var profile map[string]any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &profile); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid application profile")
			return
		}
	}

	user, err := h.provisioner.EnsureUser(r.Context(), profile)
	if err != nil {
		h.log.Error("User application failed", "err", err)
		h.writeIssuerError(w, err)
		return
	}
	if user == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "exists"})
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// HandleUserStatus returns the user's application state.
//
// URL format: GET /api/users/{user_id}
func (h *Handler) HandleUserStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	user, err := h.client.GetUserApplication(r.Context(), userID)
	if err != nil {
		h.log.Error("User application lookup failed", "err", err, slog.String("user_id", userID))
		h.writeIssuerError(w, err)
		return
	}
	if user == nil {
		h.writeError(w, http.StatusNotFound, "user not found")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

type provisionRequest struct {
	DisplayName string             `json:"displayName"`
	LimitAmount int64              `json:"limitAmount"`
	ChainID     interfaces.ChainID `json:"chainId"`
}

// HandleProvisionCard runs the provisioning workflow for a user: deposit
// contract plus working card. Contract readiness is reported in the
// response, never blocks issuance.
//
// URL format: POST /api/users/{user_id}/cards
// Request body (all fields optional):
//
//	{"displayName": "...", "limitAmount": 1000, "chainId": 84532}
func (h *Handler) HandleProvisionCard(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	var req provisionRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	chainID := req.ChainID
	if chainID == 0 {
		chainID = h.chainID
	}

	result, err := h.provisioner.Provision(r.Context(), userID, chainID, provisioner.CardOptions{
		DisplayName: req.DisplayName,
		LimitAmount: req.LimitAmount,
	})
	if err != nil {
		h.log.Error("Provisioning failed", "err", err, slog.String("user_id", userID))
		h.writeIssuerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleListCards lists the user's cards as known by the issuer.
//
// URL format: GET /api/users/{user_id}/cards
func (h *Handler) HandleListCards(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	cards, err := h.client.ListCards(r.Context(), userID, 20)
	if err != nil {
		h.log.Error("Card listing failed", "err", err, slog.String("user_id", userID))
		h.writeIssuerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// HandleContracts reports deposit contract readiness. The chain defaults
// to the configured one and can be overridden with ?chain_id=. A contract
// that has not materialized yet is a 200 with ready=false, not an error.
//
// URL format: GET /api/users/{user_id}/contracts
func (h *Handler) HandleContracts(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	chainID := h.chainID
	if raw := r.URL.Query().Get("chain_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid chain_id")
			return
		}
		chainID = interfaces.ChainID(parsed)
	}

	contract, err := h.provisioner.ContractFor(r.Context(), userID, chainID)
	if err != nil {
		if errors.Is(err, provisioner.ErrContractNotReady) {
			h.writeJSON(w, http.StatusOK, map[string]any{"ready": false})
			return
		}
		h.log.Error("Contract lookup failed", "err", err, slog.String("user_id", userID))
		h.writeIssuerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true, "contract": contract})
}

// HandleUserBalances returns the user's credit balances in dollars.
//
// URL format: GET /api/users/{user_id}/balances
func (h *Handler) HandleUserBalances(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	balances, err := h.client.UserBalances(r.Context(), userID)
	if err != nil {
		h.log.Error("Balance lookup failed", "err", err, slog.String("user_id", userID))
		h.writeIssuerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balances)
}

// HandleGetCard returns a single card's public details.
//
// URL format: GET /api/cards/{card_id}
func (h *Handler) HandleGetCard(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("card_id")
	if cardID == "" {
		h.writeError(w, http.StatusBadRequest, "missing card id")
		return
	}

	card, err := h.client.GetCard(r.Context(), cardID)
	if err != nil {
		h.log.Error("Card lookup failed", "err", err, slog.String("card_id", cardID))
		h.writeIssuerError(w, err)
		return
	}
	if card == nil {
		h.writeError(w, http.StatusNotFound, "card not found")
		return
	}
	h.writeJSON(w, http.StatusOK, card)
}

// HandleRevealSecrets runs the encrypted secrets handshake and returns the
// card's plaintext PAN and CVC. The response is never cacheable. A card
// that cannot be activated yields 409.
//
// URL format: POST /api/cards/{card_id}/secrets
func (h *Handler) HandleRevealSecrets(w http.ResponseWriter, r *http.Request) {
	cardID := r.PathValue("card_id")
	if cardID == "" {
		h.writeError(w, http.StatusBadRequest, "missing card id")
		return
	}

	secrets, err := h.provisioner.RevealSecrets(r.Context(), cardID)
	if err != nil {
		h.log.Error("Secrets reveal failed", "err", err)
		h.writeIssuerError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, secrets)
}
