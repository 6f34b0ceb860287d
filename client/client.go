package client

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/handles"
	"github.com/ruteri/ddssec-engine/handshake"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/keymaterial"
	"github.com/ruteri/ddssec-engine/ta"
)

// Output room reserved for variable-length results.
const (
	certificateRoom = 16 << 10
	stringRoom      = 1024
	signatureRoom   = 1024
)

// Client is the typed caller-side API over a ta.Session.
type Client struct {
	session *ta.Session
}

func New(session *ta.Session) *Client {
	return &Client{session: session}
}

// invoke runs cmd with params in slot order and returns the updated slots.
func (c *Client) invoke(ctx context.Context, cmd ta.Command, params ...ta.Param) ([ta.NumParams]ta.Param, error) {
	var p [ta.NumParams]ta.Param
	copy(p[:], params)
	types, ok := ta.Signature(cmd)
	if !ok {
		return p, newError(cmd, ta.ResultNotSupported)
	}
	if r := c.session.InvokeCommand(ctx, cmd, types, &p); r != ta.ResultSuccess {
		return p, newError(cmd, r)
	}
	return p, nil
}

func handleParam(h interfaces.HandleID) ta.Param {
	return ta.ValueParam(uint32(h), 0)
}

func boolValue(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// nameParam encodes name NUL-terminated.
func nameParam(name string) ta.Param {
	return ta.MemrefParam(append([]byte(name), 0))
}

func outParam(room int) ta.Param {
	return ta.MemrefParam(make([]byte, room))
}

func output(p ta.Param) []byte {
	return p.Buffer[:p.Size]
}

func (c *Client) create(ctx context.Context, cmd ta.Command, params ...ta.Param) (interfaces.HandleID, error) {
	p, err := c.invoke(ctx, cmd, append([]ta.Param{{}}, params...)...)
	if err != nil {
		return interfaces.InvalidHandle, err
	}
	return interfaces.HandleID(int32(p[0].Value.A)), nil
}

func (c *Client) info(ctx context.Context, cmd ta.Command) (handles.Info, error) {
	p, err := c.invoke(ctx, cmd, ta.Param{})
	if err != nil {
		return handles.Info{}, err
	}
	return handles.Info{Capacity: p[0].Value.A, Allocated: p[0].Value.B}, nil
}

func (c *Client) getBytes(ctx context.Context, cmd ta.Command, room int, h interfaces.HandleID) ([]byte, error) {
	p, err := c.invoke(ctx, cmd, outParam(room), handleParam(h))
	if err != nil {
		return nil, err
	}
	return output(p[0]), nil
}

func (c *Client) getString(ctx context.Context, cmd ta.Command, h interfaces.HandleID) (string, error) {
	b, err := c.getBytes(ctx, cmd, stringRoom, h)
	return string(b), err
}

// Identity

func (c *Client) CreateIdentity(ctx context.Context) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdIHCreate)
}

func (c *Client) DeleteIdentity(ctx context.Context, ih interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdIHDelete, handleParam(ih))
	return err
}

func (c *Client) IdentityInfo(ctx context.Context) (handles.Info, error) {
	return c.info(ctx, ta.CmdIHInfo)
}

func (c *Client) LoadCA(ctx context.Context, ih interfaces.HandleID, name string) error {
	_, err := c.invoke(ctx, ta.CmdIHCALoad, handleParam(ih), nameParam(name))
	return err
}

func (c *Client) UnloadCA(ctx context.Context, ih interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdIHCAUnload, handleParam(ih))
	return err
}

func (c *Client) CASubjectName(ctx context.Context, ih interfaces.HandleID) (string, error) {
	return c.getString(ctx, ta.CmdIHCAGetSN, ih)
}

func (c *Client) CASignatureAlgorithm(ctx context.Context, ih interfaces.HandleID) (string, error) {
	return c.getString(ctx, ta.CmdIHCAGetSignatureAlgorithm, ih)
}

func (c *Client) LoadCertificate(ctx context.Context, ih interfaces.HandleID, name string) error {
	_, err := c.invoke(ctx, ta.CmdIHCertLoad, handleParam(ih), nameParam(name))
	return err
}

// LoadRemoteCertificate loads a peer's certificate into rih, verified with
// the CA of the local identity lih.
func (c *Client) LoadRemoteCertificate(ctx context.Context, rih interfaces.HandleID, cert []byte, lih interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdIHCertLoadFromBuffer, handleParam(rih), ta.MemrefParam(cert), handleParam(lih))
	return err
}

func (c *Client) UnloadCertificate(ctx context.Context, ih interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdIHCertUnload, handleParam(ih))
	return err
}

// Certificate returns the identity certificate in PEM form.
func (c *Client) Certificate(ctx context.Context, ih interfaces.HandleID) ([]byte, error) {
	return c.getBytes(ctx, ta.CmdIHCertGet, certificateRoom, ih)
}

func (c *Client) CertificateSubjectName(ctx context.Context, ih interfaces.HandleID) (string, error) {
	return c.getString(ctx, ta.CmdIHCertGetSN, ih)
}

func (c *Client) CertificateRawSubject(ctx context.Context, ih interfaces.HandleID) ([]byte, error) {
	return c.getBytes(ctx, ta.CmdIHCertGetRawSN, stringRoom, ih)
}

func (c *Client) CertificateSubjectSHA256(ctx context.Context, ih interfaces.HandleID) ([]byte, error) {
	return c.getBytes(ctx, ta.CmdIHCertGetSHA256SN, cryptoutils.SHA256Size, ih)
}

func (c *Client) CertificateSignatureAlgorithm(ctx context.Context, ih interfaces.HandleID) (string, error) {
	return c.getString(ctx, ta.CmdIHCertGetSignatureAlgorithm, ih)
}

func (c *Client) VerifySignature(ctx context.Context, rih interfaces.HandleID, message, signature []byte) error {
	_, err := c.invoke(ctx, ta.CmdIHCertVerify, handleParam(rih), ta.MemrefParam(message), ta.MemrefParam(signature))
	return err
}

func (c *Client) LoadPrivateKey(ctx context.Context, ih interfaces.HandleID, name string, password []byte) error {
	_, err := c.invoke(ctx, ta.CmdIHPrivkeyLoad, handleParam(ih), nameParam(name), ta.MemrefParam(password))
	return err
}

func (c *Client) UnloadPrivateKey(ctx context.Context, ih interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdIHPrivkeyUnload, handleParam(ih))
	return err
}

func (c *Client) Sign(ctx context.Context, ih interfaces.HandleID, message []byte) ([]byte, error) {
	p, err := c.invoke(ctx, ta.CmdIHPrivkeySign, outParam(signatureRoom), handleParam(ih), ta.MemrefParam(message))
	if err != nil {
		return nil, err
	}
	return output(p[0]), nil
}

// Handshake

func (c *Client) CreateHandshake(ctx context.Context) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdHHCreate)
}

func (c *Client) DeleteHandshake(ctx context.Context, hh interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdHHDelete, handleParam(hh))
	return err
}

func (c *Client) HandshakeInfo(ctx context.Context) (handles.Info, error) {
	return c.info(ctx, ta.CmdHHInfo)
}

func (c *Client) GenerateDH(ctx context.Context, hh interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdHHDHGenerate, handleParam(hh))
	return err
}

func (c *Client) DHPublicKey(ctx context.Context, hh interfaces.HandleID) ([]byte, error) {
	return c.getBytes(ctx, ta.CmdHHDHGetPublic, handshake.MaxDHPublicSize, hh)
}

func (c *Client) SetDHPublicKey(ctx context.Context, hh interfaces.HandleID, public []byte) error {
	_, err := c.invoke(ctx, ta.CmdHHDHSetPublic, handleParam(hh), ta.MemrefParam(public))
	return err
}

func (c *Client) UnloadDH(ctx context.Context, hh interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdHHDHUnload, handleParam(hh))
	return err
}

func (c *Client) GenerateChallenge(ctx context.Context, hh interfaces.HandleID, id, size int) error {
	_, err := c.invoke(ctx, ta.CmdHHChallengeGenerate, handleParam(hh), ta.ValueParam(uint32(size), 0), ta.ValueParam(uint32(id), 0))
	return err
}

func (c *Client) Challenge(ctx context.Context, hh interfaces.HandleID, id int) ([]byte, error) {
	p, err := c.invoke(ctx, ta.CmdHHChallengeGet, outParam(handshake.MaxChallengeSize), handleParam(hh), ta.ValueParam(uint32(id), 0))
	if err != nil {
		return nil, err
	}
	return output(p[0]), nil
}

func (c *Client) SetChallenge(ctx context.Context, hh interfaces.HandleID, id int, challenge []byte) error {
	_, err := c.invoke(ctx, ta.CmdHHChallengeSet, handleParam(hh), ta.MemrefParam(challenge), ta.ValueParam(uint32(id), 0))
	return err
}

func (c *Client) UnloadChallenges(ctx context.Context, hh interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdHHChallengeUnload, handleParam(hh))
	return err
}

// Shared secret

func (c *Client) DeriveSharedSecret(ctx context.Context, hh interfaces.HandleID) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdSSHDerive, handleParam(hh))
}

func (c *Client) SharedSecret(ctx context.Context, ssh interfaces.HandleID) (handshake.SharedSecret, error) {
	p, err := c.invoke(ctx, ta.CmdSSHGetData,
		outParam(cryptoutils.SHA256Size),
		outParam(handshake.MaxChallengeSize),
		outParam(handshake.MaxChallengeSize),
		handleParam(ssh))
	if err != nil {
		return handshake.SharedSecret{}, err
	}
	return handshake.SharedSecret{
		SharedKey:  output(p[0]),
		Challenge1: output(p[1]),
		Challenge2: output(p[2]),
	}, nil
}

func (c *Client) DeleteSharedSecret(ctx context.Context, ssh interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdSSHDelete, handleParam(ssh))
	return err
}

func (c *Client) SharedSecretInfo(ctx context.Context) (handles.Info, error) {
	return c.info(ctx, ta.CmdSSHInfo)
}

// Key material

func (c *Client) CreateKeyMaterial(ctx context.Context, useGCM, use256 bool) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdKMCreate, ta.ValueParam(boolValue(useGCM), boolValue(use256)))
}

func (c *Client) GenerateKeyMaterial(ctx context.Context, ssh interfaces.HandleID) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdKMGenerate, handleParam(ssh))
}

func (c *Client) CopyKeyMaterial(ctx context.Context, kh interfaces.HandleID) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdKMCopy, handleParam(kh))
}

func (c *Client) RegisterKeyMaterial(ctx context.Context, kh interfaces.HandleID, isOriginAuth, generateReceiverSpecific bool) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdKMRegister, handleParam(kh), ta.ValueParam(boolValue(isOriginAuth), boolValue(generateReceiverSpecific)))
}

func (c *Client) SerializeKeyMaterial(ctx context.Context, kh interfaces.HandleID) ([]byte, error) {
	return c.getBytes(ctx, ta.CmdKMSerialize, keymaterial.MaxSerializedSize, kh)
}

func (c *Client) DeserializeKeyMaterial(ctx context.Context, data []byte) (interfaces.HandleID, error) {
	return c.create(ctx, ta.CmdKMDeserialize, ta.MemrefParam(data))
}

func (c *Client) DeleteKeyMaterial(ctx context.Context, kh interfaces.HandleID) error {
	_, err := c.invoke(ctx, ta.CmdKMDelete, handleParam(kh))
	return err
}

func (c *Client) KeyMaterialInfo(ctx context.Context) (handles.Info, error) {
	return c.info(ctx, ta.CmdKMInfo)
}

// KeyMaterial reads every field of key material kh.
func (c *Client) KeyMaterial(ctx context.Context, kh interfaces.HandleID) (keymaterial.KeyMaterial, error) {
	var km keymaterial.KeyMaterial
	for _, part := range []keymaterial.Part{keymaterial.PartSalt, keymaterial.PartSender, keymaterial.PartReceiverSpecific} {
		first, second, err := c.KeyMaterialPart(ctx, kh, part)
		if err != nil {
			km.Wipe()
			return keymaterial.KeyMaterial{}, err
		}
		switch part {
		case keymaterial.PartSalt:
			kind, err := interfaces.TransformationKindFromBytes(first)
			if err != nil {
				return keymaterial.KeyMaterial{}, fmt.Errorf("%w: %v", interfaces.ErrBadFormat, err)
			}
			km.Kind = kind
			copy(km.MasterSalt[:], second)
		case keymaterial.PartSender:
			copy(km.SenderKeyID[:], first)
			copy(km.MasterSenderKey[:], second)
		case keymaterial.PartReceiverSpecific:
			copy(km.ReceiverSpecificKeyID[:], first)
			copy(km.MasterReceiverSpecificKey[:], second)
		}
		cryptoutils.Wipe(second)
	}
	return km, nil
}

// KeyMaterialPart returns one field pair of key material kh.
func (c *Client) KeyMaterialPart(ctx context.Context, kh interfaces.HandleID, part keymaterial.Part) ([]byte, []byte, error) {
	firstRoom := keymaterial.KeyIDSize
	if part == keymaterial.PartSalt {
		firstRoom = interfaces.TransformationKindSize
	}
	p, err := c.invoke(ctx, ta.CmdKMGet,
		outParam(firstRoom),
		outParam(keymaterial.KeyStorageSize),
		handleParam(kh),
		ta.ValueParam(uint32(part), 0))
	if err != nil {
		return nil, nil, err
	}
	return output(p[0]), output(p[1]), nil
}

// Session keys

func (c *Client) SessionKey(ctx context.Context, kh interfaces.HandleID, sessionID uint32, receiverSpecific bool) ([]byte, error) {
	p, err := c.invoke(ctx, ta.CmdSessionKeyCreateAndGet,
		outParam(keymaterial.SessionKeySize),
		handleParam(kh),
		ta.ValueParam(sessionID, boolValue(receiverSpecific)))
	if err != nil {
		return nil, err
	}
	return output(p[0]), nil
}

// SessionEncrypt encrypts plaintext under the session key and returns the
// ciphertext and a tag of tagSize bytes. plaintext is not modified.
func (c *Client) SessionEncrypt(ctx context.Context, kh interfaces.HandleID, sessionID uint32, receiverSpecific bool, iv []byte, tagSize int, plaintext []byte) ([]byte, []byte, error) {
	cmd := ta.CmdSessionKeyEncrypt
	if receiverSpecific {
		cmd = ta.CmdSessionReceiverKeyEncrypt
	}
	data := bytes.Clone(plaintext)
	p, err := c.invoke(ctx, cmd, ta.MemrefParam(data), outParam(tagSize), ta.MemrefParam(iv), ta.ValueParam(uint32(kh), sessionID))
	if err != nil {
		return nil, nil, err
	}
	return output(p[0]), output(p[1]), nil
}

func (c *Client) SessionDecrypt(ctx context.Context, kh interfaces.HandleID, sessionID uint32, receiverSpecific bool, iv, tag, ciphertext []byte) ([]byte, error) {
	cmd := ta.CmdSessionKeyDecrypt
	if receiverSpecific {
		cmd = ta.CmdSessionReceiverKeyDecrypt
	}
	data := bytes.Clone(ciphertext)
	p, err := c.invoke(ctx, cmd, ta.MemrefParam(data), ta.MemrefParam(tag), ta.MemrefParam(iv), ta.ValueParam(uint32(kh), sessionID))
	if err != nil {
		return nil, err
	}
	return output(p[0]), nil
}

// Raw-key AES-GCM

// AESEncrypt encrypts plaintext under key and returns the ciphertext and a
// tag of tagSize bytes.
func (c *Client) AESEncrypt(ctx context.Context, key, iv []byte, tagSize int, plaintext []byte) ([]byte, []byte, error) {
	data := bytes.Clone(plaintext)
	p, err := c.invoke(ctx, ta.CmdAESEncrypt, ta.MemrefParam(data), outParam(tagSize), ta.MemrefParam(key), ta.MemrefParam(iv))
	if err != nil {
		return nil, nil, err
	}
	return output(p[0]), output(p[1]), nil
}

func (c *Client) AESDecrypt(ctx context.Context, key, iv, tag, ciphertext []byte) ([]byte, error) {
	data := bytes.Clone(ciphertext)
	p, err := c.invoke(ctx, ta.CmdAESDecrypt, ta.MemrefParam(data), ta.MemrefParam(tag), ta.MemrefParam(key), ta.MemrefParam(iv))
	if err != nil {
		return nil, err
	}
	return output(p[0]), nil
}

// Objects

func (c *Client) LoadObjectBuiltin(ctx context.Context, name string) error {
	_, err := c.invoke(ctx, ta.CmdLoadObjectBuiltin, nameParam(name))
	return err
}

func (c *Client) LoadObjectStorage(ctx context.Context, name string) error {
	_, err := c.invoke(ctx, ta.CmdLoadObjectStorage, nameParam(name))
	return err
}

func (c *Client) UnloadObject(ctx context.Context) error {
	_, err := c.invoke(ctx, ta.CmdUnloadObject)
	return err
}
