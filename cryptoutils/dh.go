package cryptoutils

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/ruteri/ddssec-engine/interfaces"
)

// DHPublicKeySize is the encoded size of a public value in the 2048-bit group.
const DHPublicKeySize = 256

// DHGroup is a finite-field Diffie-Hellman group with a prime-order subgroup.
type DHGroup struct {
	P *big.Int
	G *big.Int
	Q *big.Int
}

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(strings.Join(strings.Fields(s), ""), 16)
	if !ok {
		panic("cryptoutils: invalid group constant")
	}
	return n
}

// MODP2048_256 is the RFC 5114 section 2.3 group: 2048-bit prime, 256-bit subgroup.
var MODP2048_256 = &DHGroup{
	P: mustHex(`
		87A8E61D B4B6663C FFBBD19C 65195999 8CEEF608 660DD0F2 5D2CEED4 435E3B00
		E00DF8F1 D61957D4 FAF7DF45 61B2AA30 16C3D911 34096FAA 3BF4296D 830E9A7C
		209E0C64 97517ABD 5A8A9D30 6BCF67ED 91F9E672 5B4758C0 22E0B1EF 4275BF7B
		6C5BFC11 D45F9088 B941F54E B1E59BB8 BC39A0BF 12307F5C 4FDB70C5 81B23F76
		B63ACAE1 CAA6B790 2D525267 35488A0E F13C6D9A 51BFA4AB 3AD83477 96524D8E
		F6A167B5 A41825D9 67E144E5 14056425 1CCACB83 E6B486F6 B3CA3F79 71506026
		C0B857F6 89962856 DED4010A BD0BE621 C3A3960A 54E710C3 75F26375 D7014103
		A4B54330 C198AF12 6116D227 6E11715F 693877FA D7EF09CA DB094AE9 1E1A1597`),
	G: mustHex(`
		3FB32C9B 73134D0B 2E775066 60EDBD48 4CA7B18F 21EF2054 07F4793A 1A0BA125
		10DBC150 77BE463F FF4FED4A AC0BB555 BE3A6C1B 0C6B47B1 BC3773BF 7E8C6F62
		901228F8 C28CBB18 A55AE313 41000A65 0196F931 C77A57F2 DDF463E5 E9EC144B
		777DE62A AAB8A862 8AC376D2 82D6ED38 64E67982 428EBC83 1D14348F 6F2F9193
		B5045AF2 767164E1 DFC967C1 FB3F2E55 A4BD1BFF E83B9C80 D052B985 D182EA0A
		DB2A3B73 13D3FE14 C8484B1E 052588B9 B7D2BBD2 DF016199 ECD06E15 57CD0915
		B3353BBB 64E0EC37 7FD02837 0DF92B52 C7891428 CDC67EB6 184B523D 1DB246C3
		2F630784 90F00EF8 D647D148 D4795451 5E2327CF EF98C582 664B4C0F 6CC41659`),
	Q: mustHex(`
		8CF83642 A709A097 B4479976 40129DA2 99B1A47D 1EB3750B A308B0FE 64F5FBD3`),
}

// Size returns the byte length of the group prime.
func (g *DHGroup) Size() int {
	return (g.P.BitLen() + 7) / 8
}

// DHKeyPair is a private exponent and its public value.
type DHKeyPair struct {
	group   *DHGroup
	private *big.Int
	public  *big.Int
}

// GenerateDHKeyPair draws a private exponent uniformly from [1, q-1].
// rnd defaults to crypto/rand when nil.
func GenerateDHKeyPair(group *DHGroup, rnd io.Reader) (*DHKeyPair, error) {
	if rnd == nil {
		rnd = rand.Reader
	}
	upper := new(big.Int).Sub(group.Q, big.NewInt(1))
	x, err := rand.Int(rnd, upper)
	if err != nil {
		return nil, fmt.Errorf("failed to generate DH private value: %w", err)
	}
	x.Add(x, big.NewInt(1))

	return &DHKeyPair{
		group:   group,
		private: x,
		public:  new(big.Int).Exp(group.G, x, group.P),
	}, nil
}

// PublicBytes returns the public value, big-endian and left-padded to the group size.
func (k *DHKeyPair) PublicBytes() []byte {
	return k.public.FillBytes(make([]byte, k.group.Size()))
}

// SharedSecret computes remote^private mod p, left-padded to the group size.
// The remote value must lie in (1, p-1) and in the order-q subgroup.
func (k *DHKeyPair) SharedSecret(remote []byte) ([]byte, error) {
	if len(remote) == 0 || len(remote) > k.group.Size() {
		return nil, fmt.Errorf("%w: remote public value of %d bytes", interfaces.ErrBadParameters, len(remote))
	}
	y := new(big.Int).SetBytes(remote)
	pMinusOne := new(big.Int).Sub(k.group.P, big.NewInt(1))
	if y.Cmp(big.NewInt(1)) <= 0 || y.Cmp(pMinusOne) >= 0 {
		return nil, fmt.Errorf("%w: remote public value out of range", interfaces.ErrSecurity)
	}
	if new(big.Int).Exp(y, k.group.Q, k.group.P).Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("%w: remote public value not in subgroup", interfaces.ErrSecurity)
	}

	z := new(big.Int).Exp(y, k.private, k.group.P)
	secret := z.FillBytes(make([]byte, k.group.Size()))
	z.SetInt64(0)
	return secret, nil
}

// Wipe clears the private exponent. The key pair is unusable afterwards.
func (k *DHKeyPair) Wipe() {
	if k == nil {
		return
	}
	if k.private != nil {
		k.private.SetInt64(0)
		k.private = nil
	}
	k.public = nil
}
