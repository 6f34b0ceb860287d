package engine

import (
	"log/slog"

	"github.com/ruteri/ddssec-engine/handles"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/keymaterial"
)

// storeKeyMaterial moves km into a new handle, wiping it if no slot is free.
// The caller holds e.mu.
func (e *Engine) storeKeyMaterial(km keymaterial.KeyMaterial, op string) (interfaces.HandleID, error) {
	kind := km.Kind
	kh, err := e.keys.Create(km)
	km.Wipe()
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	e.log.Debug("Created key material handle",
		slog.String("op", op),
		slog.Int("handle", int(kh)),
		slog.String("kind", kind.String()))
	return kh, nil
}

// CreateKeyMaterial creates random key material of the selected kind.
func (e *Engine) CreateKeyMaterial(useGCM, use256 bool) (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	km, err := keymaterial.Create(useGCM, use256)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	return e.storeKeyMaterial(km, "create")
}

// GenerateKeyMaterial derives AES256_GCM key material from shared secret ssh.
func (e *Engine) GenerateKeyMaterial(ssh interfaces.HandleID) (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	secret, err := e.secrets.Get(ssh)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	km, err := keymaterial.Generate(secret)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	return e.storeKeyMaterial(km, "generate")
}

func (e *Engine) CopyKeyMaterial(kh interfaces.HandleID) (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, err := e.keys.Get(kh)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	return e.storeKeyMaterial(src.Copy(), "copy")
}

// RegisterKeyMaterial creates the key material a remote participant is
// registered with from local key material kh.
func (e *Engine) RegisterKeyMaterial(kh interfaces.HandleID, isOriginAuth, generateReceiverSpecific bool) (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	src, err := e.keys.Get(kh)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	km, err := src.Register(isOriginAuth, generateReceiverSpecific)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	return e.storeKeyMaterial(km, "register")
}

// SerializeKeyMaterial encodes key material kh in its wire layout.
func (e *Engine) SerializeKeyMaterial(kh interfaces.HandleID) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	km, err := e.keys.Get(kh)
	if err != nil {
		return nil, err
	}
	return km.Serialize()
}

// DeserializeKeyMaterial decodes data into a new key material handle.
func (e *Engine) DeserializeKeyMaterial(data []byte) (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	km, err := keymaterial.Deserialize(data)
	if err != nil {
		e.log.Debug("Rejected serialized key material", slog.Int("size", len(data)), "err", err)
		return interfaces.InvalidHandle, err
	}
	return e.storeKeyMaterial(km, "deserialize")
}

func (e *Engine) DeleteKeyMaterial(kh interfaces.HandleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.keys.Delete(kh)
}

func (e *Engine) KeyMaterialInfo() handles.Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.keys.Info()
}

// KeyMaterialPart returns one field pair of key material kh.
func (e *Engine) KeyMaterialPart(kh interfaces.HandleID, part keymaterial.Part) ([]byte, []byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	km, err := e.keys.Get(kh)
	if err != nil {
		return nil, nil, err
	}
	return km.Part(part)
}

// SessionKey derives the session key for sessionID from key material kh.
// Session keys are never stored.
func (e *Engine) SessionKey(kh interfaces.HandleID, sessionID uint32, receiverSpecific bool) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	km, err := e.keys.Get(kh)
	if err != nil {
		return nil, err
	}
	return km.SessionKey(sessionID, receiverSpecific)
}

// SessionEncrypt seals data in place under the session key and returns the tag.
func (e *Engine) SessionEncrypt(kh interfaces.HandleID, sessionID uint32, receiverSpecific bool, iv []byte, tagSize int, data []byte) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	km, err := e.keys.Get(kh)
	if err != nil {
		return nil, err
	}
	return km.Encrypt(sessionID, receiverSpecific, iv, tagSize, data)
}

func (e *Engine) SessionDecrypt(kh interfaces.HandleID, sessionID uint32, receiverSpecific bool, iv, tag, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	km, err := e.keys.Get(kh)
	if err != nil {
		return err
	}
	return km.Decrypt(sessionID, receiverSpecific, iv, tag, data)
}
