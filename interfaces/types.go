package interfaces

// ChainID identifies a blockchain network in the issuer's contract model.
type ChainID int64

// ApplicationStatus is the issuer-driven state of a user application.
// Transitions happen on the issuer side; this service only observes them.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// CardStatus is the lifecycle state of an issued card.
type CardStatus string

const (
	CardStatusPending      CardStatus = "pending"
	CardStatusNotActivated CardStatus = "notActivated"
	CardStatusActive       CardStatus = "active"
	CardStatusSuspended    CardStatus = "suspended"
)

// User is a cardholder as represented by the issuing service.
type User struct {
	ID                string            `json:"id"`
	Email             string            `json:"email,omitempty"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus"`
	WalletAddress     string            `json:"walletAddress,omitempty"`
}

// Card is the masked card snapshot returned by the issuing service.
// The issuer is inconsistent about the last-four field name, so both
// spellings are decoded; use LastFour to read it.
type Card struct {
	ID       string     `json:"id"`
	UserID   string     `json:"userId,omitempty"`
	Status   CardStatus `json:"status"`
	Last4    string     `json:"last4,omitempty"`
	AltLast4 string     `json:"lastFour,omitempty"`
	Brand    string     `json:"brand,omitempty"`
	ExpMonth int        `json:"expMonth,omitempty"`
	ExpYear  int        `json:"expYear,omitempty"`
}

// LastFour returns the last four digits regardless of which field name the
// issuer used in its response.
func (c *Card) LastFour() string {
	if c.Last4 != "" {
		return c.Last4
	}
	return c.AltLast4
}

// ContractToken describes a token balance held by a deposit contract.
type ContractToken struct {
	Address      string  `json:"address"`
	Balance      string  `json:"balance"`
	ExchangeRate float64 `json:"exchangeRate,omitempty"`
	AdvanceRate  float64 `json:"advanceRate,omitempty"`
}

// DepositContract is an on-chain contract backing a user's card spending.
// The issuer creates it asynchronously, so it may not appear in listings
// until some time after the create call returned.
type DepositContract struct {
	ID                string          `json:"id"`
	ChainID           ChainID         `json:"chainId"`
	DepositAddress    string          `json:"depositAddress"`
	ProxyAddress      string          `json:"proxyAddress,omitempty"`
	ControllerAddress string          `json:"controllerAddress,omitempty"`
	Tokens            []ContractToken `json:"tokens,omitempty"`
	ContractVersion   string          `json:"contractVersion,omitempty"`
}

// CreditBalances are the issuer-computed credit figures for a user,
// converted from integer cents to dollars.
type CreditBalances struct {
	CreditLimit    float64 `json:"creditLimit"`
	PendingCharges float64 `json:"pendingCharges"`
	PostedCharges  float64 `json:"postedCharges"`
	BalanceDue     float64 `json:"balanceDue"`
	SpendingPower  float64 `json:"spendingPower"`
}

// CardBalance is a single card's balance, in dollars.
type CardBalance struct {
	Currency  string  `json:"currency"`
	Available float64 `json:"available"`
	Current   float64 `json:"current"`
}

// EncryptedSecretBlock is one AES-GCM ciphertext as delivered by the
// issuer's secrets endpoint. Both fields are base64 encoded.
type EncryptedSecretBlock struct {
	Data string `json:"data"`
	IV   string `json:"iv"`
}

// EncryptedCardSecrets carries the PAN and CVC blocks, each encrypted
// independently under the session key with its own IV.
type EncryptedCardSecrets struct {
	EncryptedPan EncryptedSecretBlock `json:"encryptedPan"`
	EncryptedCvc EncryptedSecretBlock `json:"encryptedCvc"`
}

// CardSecrets holds decrypted card numbers. Instances are caller-owned and
// short-lived; they must never be logged or persisted.
type CardSecrets struct {
	CardNumber string `json:"cardNumber"`
	CVC        string `json:"cvc"`
}

// CardRequest describes a card to create. Zero values fall back to the
// service defaults (allTime limit of 1000, status active).
type CardRequest struct {
	DisplayName string
	LimitAmount int64
	Status      CardStatus
}
