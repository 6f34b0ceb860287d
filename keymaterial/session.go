package keymaterial

import (
	"encoding/binary"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/interfaces"
)

// SessionKeySize is the length of every derived session key.
const SessionKeySize = cryptoutils.SHA256Size

var (
	sessionKeyLabel         = []byte("SessionKey")
	sessionReceiverKeyLabel = []byte("SessionReceiverKey")
)

// SessionKey computes
//
//	HMAC-SHA256(master key, label || master_salt[:w] || LE32(sessionID))
//
// where the master key and label are the receiver-specific ones when
// receiverSpecific is set. The caller owns the returned key and should wipe it.
func (km *KeyMaterial) SessionKey(sessionID uint32, receiverSpecific bool) ([]byte, error) {
	w := km.Kind.KeyWidth()
	if w == 0 {
		return nil, fmt.Errorf("%w: no session key for transformation kind %s", interfaces.ErrBadState, km.Kind)
	}

	var id [4]byte
	binary.LittleEndian.PutUint32(id[:], sessionID)

	if receiverSpecific {
		return cryptoutils.HMACSHA256(km.MasterReceiverSpecificKey[:w], sessionReceiverKeyLabel, km.MasterSalt[:w], id[:]), nil
	}
	return cryptoutils.HMACSHA256(km.MasterSenderKey[:w], sessionKeyLabel, km.MasterSalt[:w], id[:]), nil
}

// Encrypt derives the session key, seals data in place with AES-GCM at the
// kind's key width and wipes the key.
func (km *KeyMaterial) Encrypt(sessionID uint32, receiverSpecific bool, iv []byte, tagSize int, data []byte) ([]byte, error) {
	key, err := km.SessionKey(sessionID, receiverSpecific)
	if err != nil {
		return nil, err
	}
	defer cryptoutils.Wipe(key)
	return cryptoutils.GCMSealInPlace(key[:km.Kind.KeyWidth()], iv, tagSize, data)
}

// Decrypt is the inverse of Encrypt.
func (km *KeyMaterial) Decrypt(sessionID uint32, receiverSpecific bool, iv, tag, data []byte) error {
	key, err := km.SessionKey(sessionID, receiverSpecific)
	if err != nil {
		return err
	}
	defer cryptoutils.Wipe(key)
	return cryptoutils.GCMOpenInPlace(key[:km.Kind.KeyWidth()], iv, tag, data)
}
