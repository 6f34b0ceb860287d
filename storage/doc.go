// Package storage provides name-addressed object stores with pluggable backends,
// and the single scratch slot the engine loads objects into.
//
// Objects are identity material (CA certificates, participant certificates and
// encrypted private keys) addressed by names of at most 63 bytes.
//
// # Storage URI Format
//
// Stores are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - builtin://
//   - file:///var/lib/ddssec/objects/
//   - sqlite:///var/lib/ddssec/objects.db
//   - redis://localhost:6379/0?prefix=ddssec:
//   - vault://vault.example.com:8200/secret/ddssec
//   - s3://bucket-name/prefix/?region=us-west-2
//   - ipfs://localhost:5001/ddssec
//   - github://owner/repo/certs?ref=main
//
// Adding sealed=true to any location wraps the store in a SealedStore that
// encrypts each object with an Argon2id-derived key and binds it to its name.
//
// # Multi-Store Example
//
//	factory := storage.NewStorageFactory(logger, builtin, passphrase)
//	store, err := factory.CreateMultiStore(locations)
//
// Loads try each available store in order; a miss in one store falls through
// to the next.
package storage
