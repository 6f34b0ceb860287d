package handshake

import (
	"bytes"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// SharedSecret is the output of a completed handshake and the input to key-material generation.
type SharedSecret struct {
	SharedKey  []byte
	Challenge1 []byte
	Challenge2 []byte
}

// Validate checks every component is present.
func (s *SharedSecret) Validate() error {
	if len(s.SharedKey) == 0 || len(s.Challenge1) == 0 || len(s.Challenge2) == 0 {
		return fmt.Errorf("%w: incomplete shared secret", interfaces.ErrMissingData)
	}
	return nil
}

// Clone returns a deep copy.
func (s *SharedSecret) Clone() SharedSecret {
	return SharedSecret{
		SharedKey:  bytes.Clone(s.SharedKey),
		Challenge1: bytes.Clone(s.Challenge1),
		Challenge2: bytes.Clone(s.Challenge2),
	}
}

// Wipe zeroes the shared key and challenges.
func (s *SharedSecret) Wipe() {
	cryptoutils.Wipe(s.SharedKey)
	cryptoutils.Wipe(s.Challenge1)
	cryptoutils.Wipe(s.Challenge2)
	*s = SharedSecret{}
}
