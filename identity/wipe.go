package identity

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"

	"github.com/ruteri/ddssec-engine/cryptoutils"
)

func wipeSigner(key crypto.Signer) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		if k.D != nil {
			k.D.SetInt64(0)
		}
	case *rsa.PrivateKey:
		if k.D != nil {
			k.D.SetInt64(0)
		}
		for _, p := range k.Primes {
			p.SetInt64(0)
		}
	case ed25519.PrivateKey:
		cryptoutils.Wipe(k)
	}
}
