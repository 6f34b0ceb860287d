package interfaces

import (
	"fmt"
)

// HandleID is an index into one of the engine's handle pools.
type HandleID = int32

// InvalidHandle is returned alongside errors from operations that create handles.
const InvalidHandle HandleID = -1

// TransformationKind selects the cipher and MAC mode of a key material.
type TransformationKind uint8

const (
	KindNone TransformationKind = iota
	KindAES128GMAC
	KindAES128GCM
	KindAES256GMAC
	KindAES256GCM
)

// TransformationKindSize is the length of the wire encoding of a TransformationKind.
const TransformationKindSize = 4

// NewTransformationKind picks the kind from the {GMAC,GCM}x{128,256} matrix.
func NewTransformationKind(useGCM, use256 bool) TransformationKind {
	switch {
	case use256 && useGCM:
		return KindAES256GCM
	case use256:
		return KindAES256GMAC
	case useGCM:
		return KindAES128GCM
	default:
		return KindAES128GMAC
	}
}

// TransformationKindFromBytes decodes the {0,0,0,n} wire form.
func TransformationKindFromBytes(b []byte) (TransformationKind, error) {
	if len(b) != TransformationKindSize {
		return KindNone, fmt.Errorf("%w: transformation kind must be %d bytes", ErrBadFormat, TransformationKindSize)
	}
	if b[0] != 0 || b[1] != 0 || b[2] != 0 {
		return KindNone, fmt.Errorf("%w: transformation kind prefix %x", ErrBadFormat, b[:3])
	}
	kind := TransformationKind(b[3])
	if !kind.Valid() {
		return KindNone, fmt.Errorf("%w: unknown transformation kind %d", ErrBadFormat, b[3])
	}
	return kind, nil
}

// Bytes returns the 4-byte wire form.
func (k TransformationKind) Bytes() [TransformationKindSize]byte {
	return [TransformationKindSize]byte{0, 0, 0, byte(k)}
}

func (k TransformationKind) Valid() bool {
	return k <= KindAES256GCM
}

// KeyWidth returns the significant length of salts and keys for this kind,
// or 0 for KindNone.
func (k TransformationKind) KeyWidth() int {
	switch k {
	case KindAES128GMAC, KindAES128GCM:
		return 16
	case KindAES256GMAC, KindAES256GCM:
		return 32
	default:
		return 0
	}
}

// String returns the DDS-Security name of the kind.
func (k TransformationKind) String() string {
	switch k {
	case KindNone:
		return "NONE"
	case KindAES128GMAC:
		return "AES128_GMAC"
	case KindAES128GCM:
		return "AES128_GCM"
	case KindAES256GMAC:
		return "AES256_GMAC"
	case KindAES256GCM:
		return "AES256_GCM"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(k))
	}
}
