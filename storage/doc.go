// Package storage provides interfaces.CardStore backends recording which
// card was issued for each user: an in-memory map, an (optionally
// encrypted) local file, Amazon S3, and HashiCorp Vault, plus a
// redundancy wrapper that replicates records across several backends.
// Backends are resolved from location URIs by StoreFactory.
package storage
