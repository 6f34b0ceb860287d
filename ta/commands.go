package ta

import "fmt"

// Command identifies an engine operation.
type Command uint32

const (
	CmdIHCreate Command = iota + 1
	CmdIHDelete
	CmdIHInfo
	CmdIHCALoad
	CmdIHCAUnload
	CmdIHCAGetSN
	CmdIHCAGetSignatureAlgorithm
	CmdIHCertLoad
	CmdIHCertLoadFromBuffer
	CmdIHCertUnload
	CmdIHCertGet
	CmdIHCertGetSN
	CmdIHCertGetRawSN
	CmdIHCertGetSHA256SN
	CmdIHCertGetSignatureAlgorithm
	CmdIHCertVerify
	CmdIHPrivkeyLoad
	CmdIHPrivkeyUnload
	CmdIHPrivkeySign

	CmdHHCreate
	CmdHHDelete
	CmdHHInfo
	CmdHHDHGenerate
	CmdHHDHGetPublic
	CmdHHDHSetPublic
	CmdHHDHUnload
	CmdHHChallengeGenerate
	CmdHHChallengeGet
	CmdHHChallengeSet
	CmdHHChallengeUnload

	CmdSSHDerive
	CmdSSHGetData
	CmdSSHDelete
	CmdSSHInfo

	CmdKMCreate
	CmdKMGenerate
	CmdKMCopy
	CmdKMRegister
	CmdKMSerialize
	CmdKMDeserialize
	CmdKMDelete
	CmdKMInfo
	CmdKMGet

	CmdSessionKeyCreateAndGet
	CmdSessionKeyEncrypt
	CmdSessionKeyDecrypt
	CmdSessionReceiverKeyEncrypt
	CmdSessionReceiverKeyDecrypt

	CmdAESEncrypt
	CmdAESDecrypt

	CmdLoadObjectBuiltin
	CmdLoadObjectStorage
	CmdUnloadObject
)

var commandNames = map[Command]string{
	CmdIHCreate:                    "ih_create",
	CmdIHDelete:                    "ih_delete",
	CmdIHInfo:                      "ih_info",
	CmdIHCALoad:                    "ih_ca_load",
	CmdIHCAUnload:                  "ih_ca_unload",
	CmdIHCAGetSN:                   "ih_ca_get_sn",
	CmdIHCAGetSignatureAlgorithm:   "ih_ca_get_signature_algorithm",
	CmdIHCertLoad:                  "ih_cert_load",
	CmdIHCertLoadFromBuffer:        "ih_cert_load_from_buffer",
	CmdIHCertUnload:                "ih_cert_unload",
	CmdIHCertGet:                   "ih_cert_get",
	CmdIHCertGetSN:                 "ih_cert_get_sn",
	CmdIHCertGetRawSN:              "ih_cert_get_raw_sn",
	CmdIHCertGetSHA256SN:           "ih_cert_get_sha256_sn",
	CmdIHCertGetSignatureAlgorithm: "ih_cert_get_signature_algorithm",
	CmdIHCertVerify:                "ih_cert_verify",
	CmdIHPrivkeyLoad:               "ih_privkey_load",
	CmdIHPrivkeyUnload:             "ih_privkey_unload",
	CmdIHPrivkeySign:               "ih_privkey_sign",
	CmdHHCreate:                    "hh_create",
	CmdHHDelete:                    "hh_delete",
	CmdHHInfo:                      "hh_info",
	CmdHHDHGenerate:                "hh_dh_generate",
	CmdHHDHGetPublic:               "hh_dh_get_public",
	CmdHHDHSetPublic:               "hh_dh_set_public",
	CmdHHDHUnload:                  "hh_dh_unload",
	CmdHHChallengeGenerate:         "hh_challenge_generate",
	CmdHHChallengeGet:              "hh_challenge_get",
	CmdHHChallengeSet:              "hh_challenge_set",
	CmdHHChallengeUnload:           "hh_challenge_unload",
	CmdSSHDerive:                   "ssh_derive",
	CmdSSHGetData:                  "ssh_get_data",
	CmdSSHDelete:                   "ssh_delete",
	CmdSSHInfo:                     "ssh_info",
	CmdKMCreate:                    "km_create",
	CmdKMGenerate:                  "km_generate",
	CmdKMCopy:                      "km_copy",
	CmdKMRegister:                  "km_register",
	CmdKMSerialize:                 "km_serialize",
	CmdKMDeserialize:               "km_deserialize",
	CmdKMDelete:                    "km_delete",
	CmdKMInfo:                      "km_info",
	CmdKMGet:                       "km_get",
	CmdSessionKeyCreateAndGet:      "session_key_create_and_get",
	CmdSessionKeyEncrypt:           "session_key_encrypt",
	CmdSessionKeyDecrypt:           "session_key_decrypt",
	CmdSessionReceiverKeyEncrypt:   "session_receiver_key_encrypt",
	CmdSessionReceiverKeyDecrypt:   "session_receiver_key_decrypt",
	CmdAESEncrypt:                  "aes_encrypt",
	CmdAESDecrypt:                  "aes_decrypt",
	CmdLoadObjectBuiltin:           "load_object_builtin",
	CmdLoadObjectStorage:           "load_object_storage",
	CmdUnloadObject:                "unload_object",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command_%d", uint32(c))
}

// Signature returns the slot kinds cmd expects.
func Signature(cmd Command) (ParamTypes, bool) {
	def, ok := commandTable[cmd]
	return def.types, ok
}
