package engine

import (
	"fmt"
	"log/slog"

	"github.com/ruteri/ddssec-engine/handles"
	"github.com/ruteri/ddssec-engine/handshake"
	"github.com/ruteri/ddssec-engine/interfaces"
)

func (e *Engine) CreateHandshake() (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	hh, err := e.handshakes.Create(handshake.New(nil))
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	e.log.Debug("Created handshake handle", slog.Int("handle", int(hh)))
	return hh, nil
}

// DeleteHandshake wipes the DH pair, the remote public value and both
// challenges and frees the handle.
func (e *Engine) DeleteHandshake(hh interfaces.HandleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.handshakes.Delete(hh)
}

func (e *Engine) HandshakeInfo() handles.Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.handshakes.Info()
}

func (e *Engine) withHandshake(hh interfaces.HandleID, fn func(h *handshake.Handshake) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.handshakes.Get(hh)
	if err != nil {
		return err
	}
	return fn(h)
}

// GenerateDH creates the local DH key pair of handshake hh.
func (e *Engine) GenerateDH(hh interfaces.HandleID) error {
	return e.withHandshake(hh, (*handshake.Handshake).GenerateDH)
}

// DHPublicKey returns the local public value, left-padded to 256 bytes.
func (e *Engine) DHPublicKey(hh interfaces.HandleID) ([]byte, error) {
	var out []byte
	err := e.withHandshake(hh, func(h *handshake.Handshake) error {
		var err error
		out, err = h.PublicKey()
		return err
	})
	return out, err
}

func (e *Engine) SetDHPublicKey(hh interfaces.HandleID, public []byte) error {
	return e.withHandshake(hh, func(h *handshake.Handshake) error {
		return h.SetRemotePublic(public)
	})
}

// UnloadDH drops the local pair and the remote value. Unloading an empty
// handshake is not an error.
func (e *Engine) UnloadDH(hh interfaces.HandleID) error {
	return e.withHandshake(hh, func(h *handshake.Handshake) error {
		h.UnloadDH()
		return nil
	})
}

// GenerateChallenge fills challenge id (1 or 2) with size random bytes.
func (e *Engine) GenerateChallenge(hh interfaces.HandleID, id, size int) error {
	return e.withHandshake(hh, func(h *handshake.Handshake) error {
		return h.GenerateChallenge(id, size)
	})
}

func (e *Engine) Challenge(hh interfaces.HandleID, id int) ([]byte, error) {
	var out []byte
	err := e.withHandshake(hh, func(h *handshake.Handshake) error {
		var err error
		out, err = h.Challenge(id)
		return err
	})
	return out, err
}

func (e *Engine) SetChallenge(hh interfaces.HandleID, id int, challenge []byte) error {
	return e.withHandshake(hh, func(h *handshake.Handshake) error {
		return h.SetChallenge(id, challenge)
	})
}

func (e *Engine) UnloadChallenges(hh interfaces.HandleID) error {
	return e.withHandshake(hh, func(h *handshake.Handshake) error {
		h.UnloadChallenges()
		return nil
	})
}

// DeriveSharedSecret computes the shared secret of handshake hh and stores it
// in a new shared-secret handle. Handshake state errors take precedence over
// a full shared-secret pool, and the handshake is only marked derived when
// the new handle can be allocated.
func (e *Engine) DeriveSharedSecret(hh interfaces.HandleID) (interfaces.HandleID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	h, err := e.handshakes.Get(hh)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	if err := h.CheckDerive(); err != nil {
		e.log.Debug("Shared secret derivation failed", slog.Int("handshake", int(hh)), "err", err)
		return interfaces.InvalidHandle, err
	}
	if info := e.secrets.Info(); info.Allocated >= info.Capacity {
		return interfaces.InvalidHandle, fmt.Errorf("%w: %s pool holds %d handles",
			interfaces.ErrCapacityExhausted, PoolSharedSecret, info.Capacity)
	}

	secret, err := h.DeriveSharedSecret()
	if err != nil {
		e.log.Debug("Shared secret derivation failed", slog.Int("handshake", int(hh)), "err", err)
		return interfaces.InvalidHandle, err
	}
	ssh, err := e.secrets.Create(*secret)
	if err != nil {
		secret.Wipe()
		return interfaces.InvalidHandle, err
	}
	e.log.Debug("Derived shared secret", slog.Int("handshake", int(hh)), slog.Int("handle", int(ssh)))
	return ssh, nil
}

// SharedSecret returns a copy of the shared key and both challenges.
func (e *Engine) SharedSecret(ssh interfaces.HandleID) (handshake.SharedSecret, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.secrets.Get(ssh)
	if err != nil {
		return handshake.SharedSecret{}, err
	}
	return s.Clone(), nil
}

func (e *Engine) DeleteSharedSecret(ssh interfaces.HandleID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.secrets.Delete(ssh)
}

func (e *Engine) SharedSecretInfo() handles.Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.secrets.Info()
}
