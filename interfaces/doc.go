// Package interfaces defines the shared contracts of the card-issuing
// backend: the typed issuer client surface, the card idempotency store, and
// the domain types exchanged between packages. It has no dependencies so
// that every other package can import it freely.
package interfaces
