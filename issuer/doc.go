// Package issuer implements a typed client for the remote card-issuing
// service's REST surface: user applications, deposit contracts, cards,
// balances, and encrypted card secrets. The client carries no retry or
// business policy; it translates each call into one authenticated HTTP
// exchange and reports failures as structured errors.
package issuer
