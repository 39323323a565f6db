// Package keys implements the KeyProvider abstraction: an
// interface exposing a public key hash and a sign operation, so that
// software keys and hardware keys conform identically and the core never
// branches on which backs a given baker.
//
// Tezos addresses come in multiple curve families; this package's Software
// implementation supports the two whose primitives are available without
// inventing a dependency the example corpus doesn't carry: tz1 (Ed25519,
// via crypto/ed25519) and tz3 (NIST P-256 ECDSA). The P-256 suite mirrors
// an *ecdsa.PrivateKey wrapper signing with github.com/nspcc-dev/rfc6979
// for a deterministic nonce, down to the sha256.New hash constructor it
// passes in. tz2 (secp256k1) needs a curve implementation no example
// repo's go.mod carries (e.g. btcec) and is left to a hardware Provider,
// which this package never needs to know about — see DESIGN.md.
package keys

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"errors"
	"io"
	"math/big"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/rfc6979"
	"golang.org/x/crypto/blake2b"
)

// Watermark is the one-byte domain-separation tag prefixed (with chain-id
// bytes) to signed payloads.
type Watermark byte

// Block and Endorsement are the two watermarks the core signs with.
// GenericOperation covers everything else the shared forge-sign pipeline
// signs (currently seed-nonce revelations).
const (
	Block            Watermark = 0x01
	Endorsement      Watermark = 0x02
	GenericOperation Watermark = 0x03
)

// Prefixed returns the watermark byte followed by the raw chain-id bytes,
// the exact prefix prepended to a payload before signing.
func (w Watermark) Prefixed(chainID []byte) []byte {
	out := make([]byte, 0, 1+len(chainID))
	out = append(out, byte(w))
	out = append(out, chainID...)

	return out
}

// Provider is the KeyProvider interface. Software (below) and
// any hardware-backed implementation conform to it identically; the core
// never inspects which.
type Provider interface {
	// PublicKeyHash returns the base58check-encoded address (tz1/tz2/tz3)
	// of this key.
	PublicKeyHash() string

	// Sign signs payload prefixed with watermark's bytes (chain-id
	// included) and returns the raw signed bytes (payload||signature,
	// ready for injection) and the base58-prefixed signature string (for
	// attaching to an operation object before preapply).
	Sign(payload []byte, watermark Watermark, chainID []byte) (signedBytes []byte, prefixSig string, err error)
}

// Suite identifies which curve family a Software key uses.
type Suite byte

// SuiteEd25519 and SuiteP256 correspond to the tz1 and tz3 address
// families respectively.
const (
	SuiteEd25519 Suite = 1 + iota
	SuiteP256
)

// Well-known, protocol-defined base58check prefix bytes. They're public
// constants (chosen upstream so the encoded string starts with a
// recognizable tag like "tz1" or "edsig"), not secrets.
var (
	prefixTz1       = []byte{6, 161, 159}
	prefixTz3       = []byte{6, 161, 164}
	prefixEdSig     = []byte{9, 245, 205, 134, 18}
	prefixP2Sig     = []byte{54, 240, 44, 52}
	prefixNonceHash = []byte{69, 220, 169}
)

// EncodeSeedNonceHash base58check-encodes a commitment nonce's seed hash
// the "nce..." string embedded in protocol_data and
// returned to NonceStore.
func EncodeSeedNonceHash(hash []byte) string {
	return base58checkEncode(prefixNonceHash, hash)
}

// Software is a KeyProvider backed by an in-memory private key.
type Software struct {
	suite  Suite
	edPriv ed25519.PrivateKey
	ecPriv *ecdsa.PrivateKey
	pkh    string
}

// GenerateSoftware creates a new software key of the given suite, reading
// randomness from r.
func GenerateSoftware(suite Suite, r io.Reader) (*Software, error) {
	switch suite {
	case SuiteEd25519:
		pub, priv, err := ed25519.GenerateKey(r)
		if err != nil {
			return nil, err
		}

		return &Software{
			suite:  SuiteEd25519,
			edPriv: priv,
			pkh:    encodeAddress(prefixTz1, publicKeyHashBytes(pub)),
		}, nil
	case SuiteP256:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), r)
		if err != nil {
			return nil, err
		}

		return NewSoftwareECDSA(priv)
	default:
		return nil, errors.New("keys: unknown suite")
	}
}

// NewSoftwareEd25519 wraps an existing Ed25519 private key as a Provider.
func NewSoftwareEd25519(priv ed25519.PrivateKey) (*Software, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("keys: bad ed25519 private key length")
	}

	pub := priv.Public().(ed25519.PublicKey)

	return &Software{
		suite:  SuiteEd25519,
		edPriv: priv,
		pkh:    encodeAddress(prefixTz1, publicKeyHashBytes(pub)),
	}, nil
}

// NewSoftwareECDSA wraps an existing P-256 private key as a Provider.
func NewSoftwareECDSA(priv *ecdsa.PrivateKey) (*Software, error) {
	if priv.Curve != elliptic.P256() {
		return nil, errors.New("keys: only P-256 is supported for software ECDSA keys")
	}

	pub := elliptic.MarshalCompressed(priv.Curve, priv.PublicKey.X, priv.PublicKey.Y)

	return &Software{
		suite:  SuiteP256,
		ecPriv: priv,
		pkh:    encodeAddress(prefixTz3, publicKeyHashBytes(pub)),
	}, nil
}

// publicKeyHashBytes returns the 20-byte blake2b digest of the raw public
// key bytes, the hash Tezos addresses are derived from.
func publicKeyHashBytes(pub []byte) []byte {
	h, err := blake2b.New(20, nil)
	if err != nil {
		panic("keys: blake2b-160 init: " + err.Error())
	}

	_, _ = h.Write(pub)

	return h.Sum(nil)
}

func encodeAddress(prefix, payload []byte) string {
	return base58checkEncode(prefix, payload)
}

// base58checkEncode encodes prefix||payload||checksum, checksum being the
// first 4 bytes of a double-sha256 — the same checksum shape base58check
// uses in its own Hash256 helper, applied here to Tezos's base58check wire
// format instead of Neo's.
func base58checkEncode(prefix, payload []byte) string {
	buf := make([]byte, 0, len(prefix)+len(payload))
	buf = append(buf, prefix...)
	buf = append(buf, payload...)

	sum := doubleSHA256(buf)
	buf = append(buf, sum[:4]...)

	return base58.Encode(buf)
}

func doubleSHA256(data []byte) [32]byte {
	h1 := sha256.Sum256(data)
	return sha256.Sum256(h1[:])
}

// PublicKeyHash implements Provider.
func (s *Software) PublicKeyHash() string {
	return s.pkh
}

// Sign implements Provider.
func (s *Software) Sign(payload []byte, watermark Watermark, chainID []byte) ([]byte, string, error) {
	msg := append(watermark.Prefixed(chainID), payload...)

	var (
		sig    []byte
		prefix []byte
	)

	switch s.suite {
	case SuiteEd25519:
		sig = ed25519.Sign(s.edPriv, msg)
		prefix = prefixEdSig
	case SuiteP256:
		sig = signECDSA(s.ecPriv, msg)
		prefix = prefixP2Sig
	default:
		return nil, "", errors.New("keys: unknown suite")
	}

	signedBytes := append(append([]byte{}, payload...), sig...)
	prefixSig := base58checkEncode(prefix, sig)

	return signedBytes, prefixSig, nil
}

// signECDSA hashes msg with sha256, signs the digest with a deterministic
// (RFC 6979) nonce, and packs r and s into a fixed 64-byte signature.
func signECDSA(priv *ecdsa.PrivateKey, msg []byte) []byte {
	h := sha256.Sum256(msg)
	r, s := rfc6979.SignECDSA(priv, h[:], sha256.New)

	sig := make([]byte, 64)
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])

	return sig
}

// VerifyECDSA checks a P-256 signature produced by Sign, independent of any
// Software instance; its caller in this module is the keys test suite.
func VerifyECDSA(pub *ecdsa.PublicKey, payload []byte, watermark Watermark, chainID, sig []byte) error {
	if len(sig) != 64 {
		return errors.New("keys: bad ecdsa signature length")
	}

	msg := append(watermark.Prefixed(chainID), payload...)
	h := sha256.Sum256(msg)

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])

	if !ecdsa.Verify(pub, h[:], r, s) {
		return errors.New("keys: bad ecdsa signature")
	}

	return nil
}

// VerifyEd25519 checks an Ed25519 signature produced by Sign.
func VerifyEd25519(pub ed25519.PublicKey, payload []byte, watermark Watermark, chainID, sig []byte) error {
	msg := append(watermark.Prefixed(chainID), payload...)
	if !ed25519.Verify(pub, msg, sig) {
		return errors.New("keys: bad ed25519 signature")
	}

	return nil
}
