// Package handles implements the bounded slot pools behind every engine handle
// type (identity, handshake, shared secret, key material).
//
// Allocation always returns the lowest free index, so a fresh pool hands out
// 0, 1, 2, ... and a deleted index is the next one reused. Callers depend on
// this ordering.
package handles
