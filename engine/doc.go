// Package engine ties the handle pools, the identity PKI, the DH handshake,
// key material and object loading into the single stateful crypto engine that
// the ta command dispatcher drives.
//
// Every exported method takes the engine mutex, so handles created through one
// session are visible to, and count against the capacity of, every other
// session sharing the engine.
package engine
