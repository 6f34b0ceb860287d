// Package keymaterial implements DDS-Security AES-GCM/GMAC key material: its
// creation from randomness or from a handshake's shared secret, registration
// for remote participants, the binary exchange format and session-key
// derivation.
package keymaterial
