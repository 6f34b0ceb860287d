package ta

import (
	"github.com/ruteri/ddssec-engine/cryptoutils"
	"github.com/ruteri/ddssec-engine/handles"
	"github.com/ruteri/ddssec-engine/interfaces"
	"github.com/ruteri/ddssec-engine/keymaterial"
)

var (
	sigHandleOut      = NewParamTypes(ParamValueOutput)
	sigHandleIn       = NewParamTypes(ParamValueInput)
	sigHandleData     = NewParamTypes(ParamValueInput, ParamMemrefInput)
	sigGetByHandle    = NewParamTypes(ParamMemrefOutput, ParamValueInput)
	sigCreateFrom     = NewParamTypes(ParamValueOutput, ParamValueInput)
	sigNamed          = NewParamTypes(ParamMemrefInput)
	sigSessionEncrypt = NewParamTypes(ParamMemrefInout, ParamMemrefOutput, ParamMemrefInput, ParamValueInput)
	sigSessionDecrypt = NewParamTypes(ParamMemrefInout, ParamMemrefInput, ParamMemrefInput, ParamValueInput)
)

var commandTable = map[Command]command{
	CmdIHCreate:                    {sigHandleOut, ihCreate},
	CmdIHDelete:                    {sigHandleIn, ihDelete},
	CmdIHInfo:                      {sigHandleOut, ihInfo},
	CmdIHCALoad:                    {sigHandleData, ihCALoad},
	CmdIHCAUnload:                  {sigHandleIn, ihCAUnload},
	CmdIHCAGetSN:                   {sigGetByHandle, ihCAGetSN},
	CmdIHCAGetSignatureAlgorithm:   {sigGetByHandle, ihCAGetSignatureAlgorithm},
	CmdIHCertLoad:                  {sigHandleData, ihCertLoad},
	CmdIHCertLoadFromBuffer:        {NewParamTypes(ParamValueInput, ParamMemrefInput, ParamValueInput), ihCertLoadFromBuffer},
	CmdIHCertUnload:                {sigHandleIn, ihCertUnload},
	CmdIHCertGet:                   {sigGetByHandle, ihCertGet},
	CmdIHCertGetSN:                 {sigGetByHandle, ihCertGetSN},
	CmdIHCertGetRawSN:              {sigGetByHandle, ihCertGetRawSN},
	CmdIHCertGetSHA256SN:           {sigGetByHandle, ihCertGetSHA256SN},
	CmdIHCertGetSignatureAlgorithm: {sigGetByHandle, ihCertGetSignatureAlgorithm},
	CmdIHCertVerify:                {NewParamTypes(ParamValueInput, ParamMemrefInput, ParamMemrefInput), ihCertVerify},
	CmdIHPrivkeyLoad:               {NewParamTypes(ParamValueInput, ParamMemrefInput, ParamMemrefInput), ihPrivkeyLoad},
	CmdIHPrivkeyUnload:             {sigHandleIn, ihPrivkeyUnload},
	CmdIHPrivkeySign:               {NewParamTypes(ParamMemrefOutput, ParamValueInput, ParamMemrefInput), ihPrivkeySign},

	CmdHHCreate:            {sigHandleOut, hhCreate},
	CmdHHDelete:            {sigHandleIn, hhDelete},
	CmdHHInfo:              {sigHandleOut, hhInfo},
	CmdHHDHGenerate:        {sigHandleIn, hhDHGenerate},
	CmdHHDHGetPublic:       {sigGetByHandle, hhDHGetPublic},
	CmdHHDHSetPublic:       {sigHandleData, hhDHSetPublic},
	CmdHHDHUnload:          {sigHandleIn, hhDHUnload},
	CmdHHChallengeGenerate: {NewParamTypes(ParamValueInput, ParamValueInput, ParamValueInput), hhChallengeGenerate},
	CmdHHChallengeGet:      {NewParamTypes(ParamMemrefOutput, ParamValueInput, ParamValueInput), hhChallengeGet},
	CmdHHChallengeSet:      {NewParamTypes(ParamValueInput, ParamMemrefInput, ParamValueInput), hhChallengeSet},
	CmdHHChallengeUnload:   {sigHandleIn, hhChallengeUnload},

	CmdSSHDerive:  {sigCreateFrom, sshDerive},
	CmdSSHGetData: {NewParamTypes(ParamMemrefOutput, ParamMemrefOutput, ParamMemrefOutput, ParamValueInput), sshGetData},
	CmdSSHDelete:  {sigHandleIn, sshDelete},
	CmdSSHInfo:    {sigHandleOut, sshInfo},

	CmdKMCreate:      {sigCreateFrom, kmCreate},
	CmdKMGenerate:    {sigCreateFrom, kmGenerate},
	CmdKMCopy:        {sigCreateFrom, kmCopy},
	CmdKMRegister:    {NewParamTypes(ParamValueOutput, ParamValueInput, ParamValueInput), kmRegister},
	CmdKMSerialize:   {sigGetByHandle, kmSerialize},
	CmdKMDeserialize: {NewParamTypes(ParamValueOutput, ParamMemrefInput), kmDeserialize},
	CmdKMDelete:      {sigHandleIn, kmDelete},
	CmdKMInfo:        {sigHandleOut, kmInfo},
	CmdKMGet:         {NewParamTypes(ParamMemrefOutput, ParamMemrefOutput, ParamValueInput, ParamValueInput), kmGet},

	CmdSessionKeyCreateAndGet:    {NewParamTypes(ParamMemrefOutput, ParamValueInput, ParamValueInput), sessionKeyCreateAndGet},
	CmdSessionKeyEncrypt:         {sigSessionEncrypt, sessionEncrypt(false)},
	CmdSessionKeyDecrypt:         {sigSessionDecrypt, sessionDecrypt(false)},
	CmdSessionReceiverKeyEncrypt: {sigSessionEncrypt, sessionEncrypt(true)},
	CmdSessionReceiverKeyDecrypt: {sigSessionDecrypt, sessionDecrypt(true)},

	CmdAESEncrypt: {NewParamTypes(ParamMemrefInout, ParamMemrefOutput, ParamMemrefInput, ParamMemrefInput), aesEncrypt},
	CmdAESDecrypt: {NewParamTypes(ParamMemrefInout, ParamMemrefInput, ParamMemrefInput, ParamMemrefInput), aesDecrypt},

	CmdLoadObjectBuiltin: {sigNamed, loadObjectBuiltin},
	CmdLoadObjectStorage: {sigNamed, loadObjectStorage},
	CmdUnloadObject:      {NewParamTypes(), unloadObject},
}

func setInfo(c *call, info handles.Info) error {
	c.setValue(0, info.Capacity, info.Allocated)
	return nil
}

func setCreated(c *call, h interfaces.HandleID, err error) error {
	if err != nil {
		return err
	}
	c.setHandle(0, h)
	return nil
}

func setBytes(c *call, i int, b []byte, err error) error {
	if err != nil {
		return err
	}
	c.setOutput(i, b)
	return nil
}

func setString(c *call, i int, s string, err error) error {
	if err != nil {
		return err
	}
	c.setOutput(i, []byte(s))
	return nil
}

// Identity

func ihCreate(c *call) error {
	h, err := c.engine.CreateIdentity()
	return setCreated(c, h, err)
}

func ihDelete(c *call) error {
	return c.engine.DeleteIdentity(c.handle(0))
}

func ihInfo(c *call) error {
	return setInfo(c, c.engine.IdentityInfo())
}

func ihCALoad(c *call) error {
	return c.engine.LoadCA(c.ctx, c.handle(0), c.name(1))
}

func ihCAUnload(c *call) error {
	return c.engine.UnloadCA(c.handle(0))
}

func ihCAGetSN(c *call) error {
	s, err := c.engine.CASubjectName(c.handle(1))
	return setString(c, 0, s, err)
}

func ihCAGetSignatureAlgorithm(c *call) error {
	s, err := c.engine.CASignatureAlgorithm(c.handle(1))
	return setString(c, 0, s, err)
}

func ihCertLoad(c *call) error {
	return c.engine.LoadCertificate(c.ctx, c.handle(0), c.name(1))
}

func ihCertLoadFromBuffer(c *call) error {
	return c.engine.LoadRemoteCertificate(c.handle(0), c.input(1), c.handle(2))
}

func ihCertUnload(c *call) error {
	return c.engine.UnloadCertificate(c.handle(0))
}

func ihCertGet(c *call) error {
	b, err := c.engine.Certificate(c.handle(1))
	return setBytes(c, 0, b, err)
}

func ihCertGetSN(c *call) error {
	s, err := c.engine.CertificateSubjectName(c.handle(1))
	return setString(c, 0, s, err)
}

func ihCertGetRawSN(c *call) error {
	b, err := c.engine.CertificateRawSubject(c.handle(1))
	return setBytes(c, 0, b, err)
}

func ihCertGetSHA256SN(c *call) error {
	b, err := c.engine.CertificateSubjectSHA256(c.handle(1))
	return setBytes(c, 0, b, err)
}

func ihCertGetSignatureAlgorithm(c *call) error {
	s, err := c.engine.CertificateSignatureAlgorithm(c.handle(1))
	return setString(c, 0, s, err)
}

func ihCertVerify(c *call) error {
	return c.engine.VerifySignature(c.handle(0), c.input(1), c.input(2))
}

func ihPrivkeyLoad(c *call) error {
	password := c.input(2)
	defer cryptoutils.Wipe(password)
	return c.engine.LoadPrivateKey(c.ctx, c.handle(0), c.name(1), password)
}

func ihPrivkeyUnload(c *call) error {
	return c.engine.UnloadPrivateKey(c.handle(0))
}

func ihPrivkeySign(c *call) error {
	b, err := c.engine.Sign(c.handle(1), c.input(2))
	return setBytes(c, 0, b, err)
}

// Handshake

func hhCreate(c *call) error {
	h, err := c.engine.CreateHandshake()
	return setCreated(c, h, err)
}

func hhDelete(c *call) error {
	return c.engine.DeleteHandshake(c.handle(0))
}

func hhInfo(c *call) error {
	return setInfo(c, c.engine.HandshakeInfo())
}

func hhDHGenerate(c *call) error {
	return c.engine.GenerateDH(c.handle(0))
}

func hhDHGetPublic(c *call) error {
	b, err := c.engine.DHPublicKey(c.handle(1))
	return setBytes(c, 0, b, err)
}

func hhDHSetPublic(c *call) error {
	return c.engine.SetDHPublicKey(c.handle(0), c.input(1))
}

func hhDHUnload(c *call) error {
	return c.engine.UnloadDH(c.handle(0))
}

func hhChallengeGenerate(c *call) error {
	return c.engine.GenerateChallenge(c.handle(0), int(c.value(2).A), int(c.value(1).A))
}

func hhChallengeGet(c *call) error {
	b, err := c.engine.Challenge(c.handle(1), int(c.value(2).A))
	return setBytes(c, 0, b, err)
}

func hhChallengeSet(c *call) error {
	return c.engine.SetChallenge(c.handle(0), int(c.value(2).A), c.input(1))
}

func hhChallengeUnload(c *call) error {
	return c.engine.UnloadChallenges(c.handle(0))
}

// Shared secret

func sshDerive(c *call) error {
	h, err := c.engine.DeriveSharedSecret(c.handle(1))
	return setCreated(c, h, err)
}

func sshGetData(c *call) error {
	secret, err := c.engine.SharedSecret(c.handle(3))
	if err != nil {
		return err
	}
	c.setOutput(0, secret.SharedKey)
	c.setOutput(1, secret.Challenge1)
	c.setOutput(2, secret.Challenge2)
	return nil
}

func sshDelete(c *call) error {
	return c.engine.DeleteSharedSecret(c.handle(0))
}

func sshInfo(c *call) error {
	return setInfo(c, c.engine.SharedSecretInfo())
}

// Key material

func kmCreate(c *call) error {
	v := c.value(1)
	h, err := c.engine.CreateKeyMaterial(v.A != 0, v.B != 0)
	return setCreated(c, h, err)
}

func kmGenerate(c *call) error {
	h, err := c.engine.GenerateKeyMaterial(c.handle(1))
	return setCreated(c, h, err)
}

func kmCopy(c *call) error {
	h, err := c.engine.CopyKeyMaterial(c.handle(1))
	return setCreated(c, h, err)
}

func kmRegister(c *call) error {
	v := c.value(2)
	h, err := c.engine.RegisterKeyMaterial(c.handle(1), v.A != 0, v.B != 0)
	return setCreated(c, h, err)
}

func kmSerialize(c *call) error {
	b, err := c.engine.SerializeKeyMaterial(c.handle(1))
	return setBytes(c, 0, b, err)
}

func kmDeserialize(c *call) error {
	data := c.input(1)
	defer cryptoutils.Wipe(data)
	h, err := c.engine.DeserializeKeyMaterial(data)
	return setCreated(c, h, err)
}

func kmDelete(c *call) error {
	return c.engine.DeleteKeyMaterial(c.handle(0))
}

func kmInfo(c *call) error {
	return setInfo(c, c.engine.KeyMaterialInfo())
}

func kmGet(c *call) error {
	first, second, err := c.engine.KeyMaterialPart(c.handle(2), keymaterial.Part(c.value(3).A))
	if err != nil {
		return err
	}
	c.setOutput(0, first)
	c.setOutput(1, second)
	return nil
}

// Session keys

func sessionKeyCreateAndGet(c *call) error {
	v := c.value(2)
	b, err := c.engine.SessionKey(c.handle(1), v.A, v.B != 0)
	return setBytes(c, 0, b, err)
}

func sessionEncrypt(receiverSpecific bool) handler {
	return func(c *call) error {
		data := c.input(0)
		v := c.value(3)
		tag, err := c.engine.SessionEncrypt(interfaces.HandleID(int32(v.A)), v.B, receiverSpecific, c.input(2), c.room(1), data)
		if err != nil {
			cryptoutils.Wipe(data)
			return err
		}
		c.setOutput(0, data)
		c.setOutput(1, tag)
		return nil
	}
}

func sessionDecrypt(receiverSpecific bool) handler {
	return func(c *call) error {
		data := c.input(0)
		v := c.value(3)
		if err := c.engine.SessionDecrypt(interfaces.HandleID(int32(v.A)), v.B, receiverSpecific, c.input(2), c.input(1), data); err != nil {
			cryptoutils.Wipe(data)
			return err
		}
		c.setOutput(0, data)
		return nil
	}
}

// Raw-key AES-GCM

func aesEncrypt(c *call) error {
	data := c.input(0)
	key := c.input(2)
	defer cryptoutils.Wipe(key)
	tag, err := c.engine.AESEncrypt(key, c.input(3), c.room(1), data)
	if err != nil {
		cryptoutils.Wipe(data)
		return err
	}
	c.setOutput(0, data)
	c.setOutput(1, tag)
	return nil
}

func aesDecrypt(c *call) error {
	data := c.input(0)
	key := c.input(2)
	defer cryptoutils.Wipe(key)
	if err := c.engine.AESDecrypt(key, c.input(3), c.input(1), data); err != nil {
		cryptoutils.Wipe(data)
		return err
	}
	c.setOutput(0, data)
	return nil
}

// Objects

func loadObjectBuiltin(c *call) error {
	return c.engine.LoadObjectBuiltin(c.ctx, c.name(0))
}

func loadObjectStorage(c *call) error {
	return c.engine.LoadObjectStorage(c.ctx, c.name(0))
}

func unloadObject(c *call) error {
	c.engine.UnloadObject()
	return nil
}
