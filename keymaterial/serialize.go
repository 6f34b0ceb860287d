package keymaterial

import (
	"fmt"

	"github.com/ruteri/ddssec-engine/interfaces"
)

const (
	lengthHeaderSize = 4

	// noneSerializedSize is the zero padding that follows a NONE kind.
	noneSerializedSize = 40
)

// SerializedSize returns the encoded length of km.
func (km *KeyMaterial) SerializedSize() int {
	w := km.Kind.KeyWidth()
	if w == 0 {
		return interfaces.TransformationKindSize + noneSerializedSize
	}
	size := interfaces.TransformationKindSize +
		lengthHeaderSize + w + KeyIDSize +
		lengthHeaderSize + w +
		lengthHeaderSize
	if km.HasReceiverSpecific() {
		size += KeyIDSize + w
	}
	return size
}

// MaxSerializedSize is the largest possible encoding, for a 256-bit kind with
// a receiver-specific key.
const MaxSerializedSize = interfaces.TransformationKindSize +
	3*lengthHeaderSize + 2*KeyIDSize + 3*KeyStorageSize

// Serialize encodes km as
//
//	kind[4]
//	{0,0,0,w} salt[w] sender_id[4]
//	{0,0,0,w} sender_key[w]
//	{0,0,0,w} receiver_id[4] receiver_key[w]   or {0,0,0,0} without a receiver-specific key
//
// A NONE kind is followed by 40 zero bytes instead.
func (km *KeyMaterial) Serialize() ([]byte, error) {
	if !km.Kind.Valid() {
		return nil, fmt.Errorf("%w: transformation kind %d", interfaces.ErrBadState, km.Kind)
	}
	out := make([]byte, 0, km.SerializedSize())
	kind := km.Kind.Bytes()
	out = append(out, kind[:]...)

	w := km.Kind.KeyWidth()
	if w == 0 {
		return append(out, make([]byte, noneSerializedSize)...), nil
	}

	header := []byte{0, 0, 0, byte(w)}
	out = append(out, header...)
	out = append(out, km.MasterSalt[:w]...)
	out = append(out, km.SenderKeyID[:]...)

	out = append(out, header...)
	out = append(out, km.MasterSenderKey[:w]...)

	if km.HasReceiverSpecific() {
		out = append(out, header...)
		out = append(out, km.ReceiverSpecificKeyID[:]...)
		out = append(out, km.MasterReceiverSpecificKey[:w]...)
	} else {
		out = append(out, 0, 0, 0, 0)
	}
	return out, nil
}

type reader struct {
	buf []byte
}

func (r *reader) next(n int) ([]byte, error) {
	if len(r.buf) < n {
		return nil, fmt.Errorf("%w: truncated key material", interfaces.ErrBadFormat)
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b, nil
}

// length reads a {0,0,0,len} header. allowZero accepts the empty receiver section.
func (r *reader) length(width int, allowZero bool) (int, error) {
	h, err := r.next(lengthHeaderSize)
	if err != nil {
		return 0, err
	}
	if h[0] != 0 || h[1] != 0 || h[2] != 0 {
		return 0, fmt.Errorf("%w: length header prefix %x", interfaces.ErrBadFormat, h[:3])
	}
	n := int(h[3])
	switch {
	case n == 0 && allowZero:
		return 0, nil
	case n != 16 && n != 32:
		return 0, fmt.Errorf("%w: key length %d", interfaces.ErrBadFormat, n)
	case n != width:
		return 0, fmt.Errorf("%w: key length %d does not match transformation width %d", interfaces.ErrBadFormat, n, width)
	}
	return n, nil
}

// Deserialize decodes the Serialize format. The buffer must be consumed exactly.
func Deserialize(data []byte) (KeyMaterial, error) {
	var km KeyMaterial
	r := reader{buf: data}

	kindBytes, err := r.next(interfaces.TransformationKindSize)
	if err != nil {
		return KeyMaterial{}, err
	}
	if km.Kind, err = interfaces.TransformationKindFromBytes(kindBytes); err != nil {
		return KeyMaterial{}, err
	}

	w := km.Kind.KeyWidth()
	if w == 0 {
		padding, err := r.next(noneSerializedSize)
		if err != nil {
			return KeyMaterial{}, err
		}
		for _, b := range padding {
			if b != 0 {
				return KeyMaterial{}, fmt.Errorf("%w: nonzero padding after NONE kind", interfaces.ErrBadFormat)
			}
		}
		return km, finish(&r)
	}

	fail := func(err error) (KeyMaterial, error) {
		km.Wipe()
		return KeyMaterial{}, err
	}

	if _, err := r.length(w, false); err != nil {
		return fail(err)
	}
	salt, err := r.next(w)
	if err != nil {
		return fail(err)
	}
	copy(km.MasterSalt[:], salt)
	senderID, err := r.next(KeyIDSize)
	if err != nil {
		return fail(err)
	}
	copy(km.SenderKeyID[:], senderID)

	if _, err := r.length(w, false); err != nil {
		return fail(err)
	}
	senderKey, err := r.next(w)
	if err != nil {
		return fail(err)
	}
	copy(km.MasterSenderKey[:], senderKey)

	n, err := r.length(w, true)
	if err != nil {
		return fail(err)
	}
	if n > 0 {
		receiverID, err := r.next(KeyIDSize)
		if err != nil {
			return fail(err)
		}
		copy(km.ReceiverSpecificKeyID[:], receiverID)
		receiverKey, err := r.next(w)
		if err != nil {
			return fail(err)
		}
		copy(km.MasterReceiverSpecificKey[:], receiverKey)
	}

	if err := finish(&r); err != nil {
		return fail(err)
	}
	return km, nil
}

func finish(r *reader) error {
	if len(r.buf) != 0 {
		return fmt.Errorf("%w: %d trailing bytes after key material", interfaces.ErrBadFormat, len(r.buf))
	}
	return nil
}
