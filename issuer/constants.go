package issuer

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

// DefaultBaseURL is the issuer's sandbox API endpoint. Production
// deployments override it via configuration.
const DefaultBaseURL = "https://api-dev.raincards.xyz/v1"

// SessionIDHeader carries the RSA-wrapped session key on secrets requests.
const SessionIDHeader = "SessionId"

// apiKeyHeader authenticates every request to the issuing service.
const apiKeyHeader = "Api-Key"

// BaseSepoliaChainID is the chain this service provisions deposit
// contracts on by default.
const BaseSepoliaChainID interfaces.ChainID = 84532

// Token contracts accepted as deposit collateral on Base Sepolia.
var (
	USDCContractAddress = common.HexToAddress("0x036CbD53842c5426634e7929541eC2318f3dCF7e")
	RUSDContractAddress = common.HexToAddress("0x10b5Be494C2962A7B318aFB63f0Ee30b959D000b")
)

// SecretsPublicKeyPEM is the issuer's published 1024-bit RSA key used to
// wrap session keys for the card-secrets handshake.
const SecretsPublicKeyPEM = `-----BEGIN PUBLIC KEY-----
MIGfMA0GCSqGSIb3DQEBAQUAA4GNADCBiQKBgQCAP192809jZyaw62g/eTzJ3P9H
+RmT88sXUYjQ0K8Bx+rJ83f22+9isKx+lo5UuV8tvOlKwvdDS/pVbzpG7D7NO45c
0zkLOXwDHZkou8fuj8xhDO5Tq3GzcrabNLRLVz3dkx0znfzGOhnY4lkOMIdKxlQb
LuVM/dGDC9UpulF+UwIDAQAB
-----END PUBLIC KEY-----`
