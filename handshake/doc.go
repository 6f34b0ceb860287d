// Package handshake implements the DH and challenge exchange that mutually
// authenticates two DDS participants and yields a SharedSecret.
//
// A handshake moves through
//
//	created -> dh-ready -> remote-key-set -> challenges-set -> derived
//
// Each field is write-once until unloaded, and DeriveSharedSecret succeeds at
// most once per handshake. The shared key is SHA-256 of the DH shared value.
package handshake
