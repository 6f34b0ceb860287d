package handshake

import (
	"bytes"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/interfaces"
)

const (
	// MaxChallengeSize bounds locally generated and peer-provided challenges.
	MaxChallengeSize = 512

	// MaxDHPublicSize bounds the peer's DH public value.
	MaxDHPublicSize = cryptoutils.DHPublicKeySize
)

// State is the protocol progress of a Handshake, derived from which fields are set.
type State int

const (
	StateCreated State = iota
	StateDHReady
	StateRemoteKeySet
	StateChallengesSet
	StateDerived
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateDHReady:
		return "dh-ready"
	case StateRemoteKeySet:
		return "remote-key-set"
	case StateChallengesSet:
		return "challenges-set"
	case StateDerived:
		return "derived"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handshake carries one side of the DH + challenge exchange. Every field is
// write-once until explicitly unloaded.
type Handshake struct {
	group        *cryptoutils.DHGroup
	dhPair       *cryptoutils.DHKeyPair
	remotePublic []byte
	challenges   [2][]byte
	derived      bool
}

// New returns an empty handshake over group, or MODP2048_256 when group is nil.
func New(group *cryptoutils.DHGroup) Handshake {
	if group == nil {
		group = cryptoutils.MODP2048_256
	}
	return Handshake{group: group}
}

// State reports the furthest protocol step reached.
func (h *Handshake) State() State {
	switch {
	case h.derived:
		return StateDerived
	case h.dhPair != nil && h.remotePublic != nil && h.challenges[0] != nil && h.challenges[1] != nil:
		return StateChallengesSet
	case h.dhPair != nil && h.remotePublic != nil:
		return StateRemoteKeySet
	case h.dhPair != nil:
		return StateDHReady
	default:
		return StateCreated
	}
}

// GenerateDH creates the local DH key pair.
func (h *Handshake) GenerateDH() error {
	if h.dhPair != nil {
		return fmt.Errorf("%w: DH key pair already generated", interfaces.ErrAlreadyInitialized)
	}
	if h.group == nil {
		h.group = cryptoutils.MODP2048_256
	}
	pair, err := cryptoutils.GenerateDHKeyPair(h.group, nil)
	if err != nil {
		return err
	}
	h.dhPair = pair
	return nil
}

// PublicKey returns a copy of the local DH public value.
func (h *Handshake) PublicKey() ([]byte, error) {
	if h.dhPair == nil {
		return nil, fmt.Errorf("%w: DH key pair not generated", interfaces.ErrNotFound)
	}
	return h.dhPair.PublicBytes(), nil
}

// SetRemotePublic stores the peer's DH public value.
func (h *Handshake) SetRemotePublic(public []byte) error {
	if len(public) == 0 {
		return fmt.Errorf("%w: empty DH public value", interfaces.ErrBadParameters)
	}
	if len(public) > MaxDHPublicSize {
		return fmt.Errorf("%w: DH public value of %d bytes exceeds %d", interfaces.ErrOverflow, len(public), MaxDHPublicSize)
	}
	if h.remotePublic != nil {
		return fmt.Errorf("%w: remote DH public value already set", interfaces.ErrAlreadyInitialized)
	}
	h.remotePublic = bytes.Clone(public)
	return nil
}

// UnloadDH clears the key pair and the remote public value. Unloading an
// empty handshake is not an error.
func (h *Handshake) UnloadDH() {
	h.dhPair.Wipe()
	h.dhPair = nil
	cryptoutils.Wipe(h.remotePublic)
	h.remotePublic = nil
}

func challengeIndex(id int) (int, error) {
	if id != 1 && id != 2 {
		return 0, fmt.Errorf("%w: challenge id %d must be 1 or 2", interfaces.ErrBadParameters, id)
	}
	return id - 1, nil
}

// GenerateChallenge fills challenge slot id with size random bytes.
func (h *Handshake) GenerateChallenge(id, size int) error {
	idx, err := challengeIndex(id)
	if err != nil {
		return err
	}
	if size <= 0 {
		return fmt.Errorf("%w: challenge size must be positive", interfaces.ErrBadParameters)
	}
	if size > MaxChallengeSize {
		return fmt.Errorf("%w: challenge size %d exceeds %d", interfaces.ErrSizeLimit, size, MaxChallengeSize)
	}
	if h.challenges[idx] != nil {
		return fmt.Errorf("%w: challenge %d already set", interfaces.ErrAlreadyInitialized, id)
	}
	challenge, err := cryptoutils.RandomBytes(size)
	if err != nil {
		return err
	}
	h.challenges[idx] = challenge
	return nil
}

// Challenge returns a copy of challenge slot id.
func (h *Handshake) Challenge(id int) ([]byte, error) {
	idx, err := challengeIndex(id)
	if err != nil {
		return nil, err
	}
	if h.challenges[idx] == nil {
		return nil, fmt.Errorf("%w: challenge %d not set", interfaces.ErrNotFound, id)
	}
	return bytes.Clone(h.challenges[idx]), nil
}

// SetChallenge stores a peer-provided challenge in slot id.
func (h *Handshake) SetChallenge(id int, challenge []byte) error {
	idx, err := challengeIndex(id)
	if err != nil {
		return err
	}
	if len(challenge) == 0 {
		return fmt.Errorf("%w: empty challenge", interfaces.ErrBadParameters)
	}
	if len(challenge) > MaxChallengeSize {
		return fmt.Errorf("%w: challenge of %d bytes exceeds %d", interfaces.ErrOverflow, len(challenge), MaxChallengeSize)
	}
	if h.challenges[idx] != nil {
		return fmt.Errorf("%w: challenge %d already set", interfaces.ErrAlreadyInitialized, id)
	}
	h.challenges[idx] = bytes.Clone(challenge)
	return nil
}

// UnloadChallenges clears both challenge slots.
func (h *Handshake) UnloadChallenges() {
	for i := range h.challenges {
		cryptoutils.Wipe(h.challenges[i])
		h.challenges[i] = nil
	}
}

// CheckDerive reports whether DeriveSharedSecret can run: the secret must
// not be derived yet and every DH and challenge field must be set.
func (h *Handshake) CheckDerive() error {
	if h.derived {
		return fmt.Errorf("%w: shared secret already derived", interfaces.ErrNoMoreRoom)
	}
	switch {
	case h.dhPair == nil:
		return fmt.Errorf("%w: DH key pair not generated", interfaces.ErrMissingData)
	case h.remotePublic == nil:
		return fmt.Errorf("%w: remote DH public value not set", interfaces.ErrMissingData)
	case h.challenges[0] == nil:
		return fmt.Errorf("%w: challenge 1 not set", interfaces.ErrMissingData)
	case h.challenges[1] == nil:
		return fmt.Errorf("%w: challenge 2 not set", interfaces.ErrMissingData)
	}
	return nil
}

// DeriveSharedSecret computes the DH shared value and packages its SHA-256
// digest with both challenges. It succeeds at most once per handshake and
// leaves the DH and challenge fields in place.
func (h *Handshake) DeriveSharedSecret() (*SharedSecret, error) {
	if err := h.CheckDerive(); err != nil {
		return nil, err
	}

	raw, err := h.dhPair.SharedSecret(h.remotePublic)
	if err != nil {
		return nil, err
	}
	defer cryptoutils.Wipe(raw)

	h.derived = true
	return &SharedSecret{
		SharedKey:  cryptoutils.SHA256(raw),
		Challenge1: bytes.Clone(h.challenges[0]),
		Challenge2: bytes.Clone(h.challenges[1]),
	}, nil
}

// Wipe clears every field. It is the pool wipe function for handshakes.
func (h *Handshake) Wipe() {
	h.UnloadDH()
	h.UnloadChallenges()
	h.derived = false
}
