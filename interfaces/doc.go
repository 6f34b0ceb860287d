// Package interfaces defines the types, sentinel errors and collaborator contracts
// shared by the DDS-Security engine packages.
//
// # Collaborators
//
// ObjectStore: name-addressed blob storage used to load CA certificates,
// identity certificates and private keys (builtin table, file, sqlite, redis,
// vault, s3, ipfs).
//
// PKI: X.509 parsing, chain verification, key-pair checks and signatures.
// The engine only consumes these operations and never inspects ASN.1 itself.
//
// # Errors
//
// Every engine operation reports failures by wrapping one of the sentinel
// errors declared in errors.go. Callers (and the invocation channel in package
// ta) classify failures with errors.Is:
//
//	if errors.Is(err, interfaces.ErrShortBuffer) { ... }
//
// # Types
//
//   - HandleID: index into one of the engine's bounded handle pools
//   - TransformationKind: DDS-Security cipher/MAC selector with its 4-byte wire form
//   - ObjectStoreLocation: parsed object store URI
package interfaces
