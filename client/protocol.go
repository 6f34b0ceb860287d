package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ruteri/ddssec-engine/interfaces"
)

// Challenge ids as used by GenerateChallenge and SetChallenge. The initiator
// owns challenge 1 and the responder challenge 2.
const (
	InitiatorChallenge = 1
	ResponderChallenge = 2
)

// Handshake runs the DH and challenge exchange between an initiator and a
// responder, each on its own client, and derives key material on both sides.
// Handshake and shared-secret handles are released before returning, and a
// failed release is joined into the returned error. The two key-material
// handles are left to the caller on success and released on failure.
func Handshake(ctx context.Context, initiator, responder *Client, challengeSize int) (ki, kr interfaces.HandleID, err error) {
	ki, kr = interfaces.InvalidHandle, interfaces.InvalidHandle
	defer func() {
		if err == nil {
			return
		}
		if ki != interfaces.InvalidHandle {
			err = errors.Join(err, initiator.DeleteKeyMaterial(ctx, ki))
		}
		if kr != interfaces.InvalidHandle {
			err = errors.Join(err, responder.DeleteKeyMaterial(ctx, kr))
		}
		ki, kr = interfaces.InvalidHandle, interfaces.InvalidHandle
	}()

	hi, err := initiator.CreateHandshake(ctx)
	if err != nil {
		return ki, kr, err
	}
	defer func() {
		err = errors.Join(err, initiator.DeleteHandshake(ctx, hi))
	}()

	hr, err := responder.CreateHandshake(ctx)
	if err != nil {
		return ki, kr, err
	}
	defer func() {
		err = errors.Join(err, responder.DeleteHandshake(ctx, hr))
	}()

	if err := exchangeDH(ctx, initiator, hi, responder, hr); err != nil {
		return ki, kr, fmt.Errorf("dh exchange: %w", err)
	}
	if err := exchangeChallenge(ctx, initiator, hi, responder, hr, InitiatorChallenge, challengeSize); err != nil {
		return ki, kr, fmt.Errorf("initiator challenge: %w", err)
	}
	if err := exchangeChallenge(ctx, responder, hr, initiator, hi, ResponderChallenge, challengeSize); err != nil {
		return ki, kr, fmt.Errorf("responder challenge: %w", err)
	}

	if ki, err = deriveKeyMaterial(ctx, initiator, hi); err != nil {
		return ki, kr, fmt.Errorf("initiator: %w", err)
	}
	if kr, err = deriveKeyMaterial(ctx, responder, hr); err != nil {
		return ki, kr, fmt.Errorf("responder: %w", err)
	}
	return ki, kr, nil
}

func exchangeDH(ctx context.Context, a *Client, ha interfaces.HandleID, b *Client, hb interfaces.HandleID) error {
	if err := a.GenerateDH(ctx, ha); err != nil {
		return err
	}
	if err := b.GenerateDH(ctx, hb); err != nil {
		return err
	}
	pa, err := a.DHPublicKey(ctx, ha)
	if err != nil {
		return err
	}
	pb, err := b.DHPublicKey(ctx, hb)
	if err != nil {
		return err
	}
	if err := a.SetDHPublicKey(ctx, ha, pb); err != nil {
		return err
	}
	return b.SetDHPublicKey(ctx, hb, pa)
}

// exchangeChallenge generates challenge id on the owner and hands it to the peer.
func exchangeChallenge(ctx context.Context, owner *Client, ho interfaces.HandleID, peer *Client, hp interfaces.HandleID, id, size int) error {
	if err := owner.GenerateChallenge(ctx, ho, id, size); err != nil {
		return err
	}
	challenge, err := owner.Challenge(ctx, ho, id)
	if err != nil {
		return err
	}
	return peer.SetChallenge(ctx, hp, id, challenge)
}

func deriveKeyMaterial(ctx context.Context, c *Client, hh interfaces.HandleID) (kh interfaces.HandleID, err error) {
	ssh, err := c.DeriveSharedSecret(ctx, hh)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	defer func() {
		err = errors.Join(err, c.DeleteSharedSecret(ctx, ssh))
		if err != nil && kh != interfaces.InvalidHandle {
			err = errors.Join(err, c.DeleteKeyMaterial(ctx, kh))
			kh = interfaces.InvalidHandle
		}
	}()
	return c.GenerateKeyMaterial(ctx, ssh)
}

// Authenticate proves to verifier that signer holds the private key of its
// identity signerIH. The signer's certificate is loaded into a temporary
// remote identity on the verifier, checked against the CA of verifierIH, and
// used to verify the signer's signature over message.
func Authenticate(ctx context.Context, signer *Client, signerIH interfaces.HandleID, verifier *Client, verifierIH interfaces.HandleID, message []byte) (err error) {
	cert, err := signer.Certificate(ctx, signerIH)
	if err != nil {
		return fmt.Errorf("signer certificate: %w", err)
	}

	rih, err := verifier.CreateIdentity(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, verifier.DeleteIdentity(ctx, rih))
	}()

	if err := verifier.LoadRemoteCertificate(ctx, rih, cert, verifierIH); err != nil {
		return fmt.Errorf("remote certificate: %w", err)
	}
	sig, err := signer.Sign(ctx, signerIH, message)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	return verifier.VerifySignature(ctx, rih, message, sig)
}
