package keymaterial

import (
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/handshake"
	"github.com/ruteri/ddssec-engine/interfaces"
	"go.uber.org/atomic"
)

const (
	// KeyStorageSize is the storage width of salts and keys. Only the first
	// Kind.KeyWidth() bytes are significant.
	KeyStorageSize = 32

	// KeyIDSize is the length of sender and receiver-specific key ids.
	KeyIDSize = 4
)

var (
	cookieSalt = []byte("keyexchange salt")
	cookieKey  = []byte("key exchange key")
)

// keyIDCounter is shared by every engine in the process so ids stay unique
// across sessions.
var keyIDCounter = atomic.NewUint32(0)

// nextKeyID returns the current counter value in little-endian order and advances it.
func nextKeyID() [KeyIDSize]byte {
	var id [KeyIDSize]byte
	binary.LittleEndian.PutUint32(id[:], keyIDCounter.Inc()-1)
	return id
}

// KeyMaterial is the DDS-Security KeyMaterial_AES_GCM_GMAC structure.
type KeyMaterial struct {
	Kind                      interfaces.TransformationKind
	MasterSalt                [KeyStorageSize]byte
	SenderKeyID               [KeyIDSize]byte
	MasterSenderKey           [KeyStorageSize]byte
	ReceiverSpecificKeyID     [KeyIDSize]byte
	MasterReceiverSpecificKey [KeyStorageSize]byte
}

// Create builds key material with random salt and sender key of the kind's
// width and a fresh sender key id.
func Create(useGCM, use256 bool) (KeyMaterial, error) {
	km := KeyMaterial{Kind: interfaces.NewTransformationKind(useGCM, use256)}
	width := km.Kind.KeyWidth()
	if err := cryptoutils.FillRandom(km.MasterSalt[:width]); err != nil {
		return KeyMaterial{}, err
	}
	if err := cryptoutils.FillRandom(km.MasterSenderKey[:width]); err != nil {
		km.Wipe()
		return KeyMaterial{}, err
	}
	km.SenderKeyID = nextKeyID()
	return km, nil
}

// Generate derives AES256_GCM key material from a handshake's shared secret.
// Key ids and receiver-specific fields are left zero.
func Generate(secret *handshake.SharedSecret) (KeyMaterial, error) {
	if err := secret.Validate(); err != nil {
		return KeyMaterial{}, err
	}
	km := KeyMaterial{Kind: interfaces.KindAES256GCM}

	salt := cryptoutils.HMACSHA256(secret.SharedKey, secret.Challenge1, cookieSalt, secret.Challenge2)
	copy(km.MasterSalt[:], salt)
	cryptoutils.Wipe(salt)

	key := cryptoutils.HMACSHA256(secret.SharedKey, secret.Challenge2, cookieKey, secret.Challenge1)
	copy(km.MasterSenderKey[:], key)
	cryptoutils.Wipe(key)

	return km, nil
}

// Copy returns an exact duplicate.
func (km *KeyMaterial) Copy() KeyMaterial {
	return *km
}

// Register builds the key material a remote participant is registered with.
// The sender fields are always copied. With origin authentication the
// receiver-specific fields are either freshly generated or copied verbatim,
// zero or not. Without it they are zero. NONE key material registers as
// NONE key material with every field zero.
func (km *KeyMaterial) Register(isOriginAuth, generateReceiverSpecific bool) (KeyMaterial, error) {
	if km.Kind.KeyWidth() == 0 {
		return KeyMaterial{Kind: interfaces.KindNone}, nil
	}
	out := KeyMaterial{
		Kind:            km.Kind,
		MasterSalt:      km.MasterSalt,
		SenderKeyID:     km.SenderKeyID,
		MasterSenderKey: km.MasterSenderKey,
	}
	switch {
	case isOriginAuth && generateReceiverSpecific:
		if err := cryptoutils.FillRandom(out.MasterReceiverSpecificKey[:km.Kind.KeyWidth()]); err != nil {
			out.Wipe()
			return KeyMaterial{}, err
		}
		out.ReceiverSpecificKeyID = nextKeyID()
	case isOriginAuth:
		out.ReceiverSpecificKeyID = km.ReceiverSpecificKeyID
		out.MasterReceiverSpecificKey = km.MasterReceiverSpecificKey
	}
	return out, nil
}

// HasReceiverSpecific reports whether a receiver-specific id or key is set.
func (km *KeyMaterial) HasReceiverSpecific() bool {
	var zeroID [KeyIDSize]byte
	var zeroKey [KeyStorageSize]byte
	return subtle.ConstantTimeCompare(km.ReceiverSpecificKeyID[:], zeroID[:]) == 0 ||
		subtle.ConstantTimeCompare(km.MasterReceiverSpecificKey[:], zeroKey[:]) == 0
}

// Part identifies one of the pairs returned by Part.
type Part int

const (
	PartSalt Part = iota
	PartSender
	PartReceiverSpecific
)

// Part returns copies of one field pair: kind and salt, sender id and key, or
// receiver-specific id and key. Salts and keys are returned at storage width.
func (km *KeyMaterial) Part(part Part) ([]byte, []byte, error) {
	switch part {
	case PartSalt:
		kind := km.Kind.Bytes()
		return kind[:], cloneArray(km.MasterSalt[:]), nil
	case PartSender:
		return cloneArray(km.SenderKeyID[:]), cloneArray(km.MasterSenderKey[:]), nil
	case PartReceiverSpecific:
		return cloneArray(km.ReceiverSpecificKeyID[:]), cloneArray(km.MasterReceiverSpecificKey[:]), nil
	default:
		return nil, nil, fmt.Errorf("%w: key material part %d", interfaces.ErrBadParameters, part)
	}
}

func cloneArray(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Wipe zeroes every field. It is the pool wipe function for key material.
func (km *KeyMaterial) Wipe() {
	*km = KeyMaterial{}
}
