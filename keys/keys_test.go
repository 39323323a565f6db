package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSoftwareEd25519SignVerify(t *testing.T) {
	k, err := GenerateSoftware(SuiteEd25519, rand.Reader)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(k.PublicKeyHash(), "tz1"))

	chainID := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	payload := []byte("block header bytes")

	signed, prefixSig, err := k.Sign(payload, Block, chainID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(prefixSig, "edsig"))
	require.Equal(t, payload, signed[:len(payload)])

	sig := signed[len(payload):]
	require.NoError(t, VerifyEd25519(k.edPriv.Public().(ed25519.PublicKey), payload, Block, chainID, sig))
}

func TestSoftwareP256SignVerify(t *testing.T) {
	k, err := GenerateSoftware(SuiteP256, rand.Reader)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(k.PublicKeyHash(), "tz3"))

	chainID := []byte{0x01, 0x02, 0x03, 0x04}
	payload := []byte("endorsement bytes")

	signed, prefixSig, err := k.Sign(payload, Endorsement, chainID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(prefixSig, "p2sig"))

	sig := signed[len(payload):]
	require.NoError(t, VerifyECDSA(&k.ecPriv.PublicKey, payload, Endorsement, chainID, sig))
}

func TestWatermarkPrefixed(t *testing.T) {
	chainID := []byte{1, 2, 3, 4}
	got := Block.Prefixed(chainID)
	require.Equal(t, []byte{0x01, 1, 2, 3, 4}, got)
}
