package baker

import "github.com/tez-baker/baker/keys"

// fakeKeys is a minimal keys.Provider fake that signs by appending a fixed
// marker to the payload, avoiding any real cryptography in unit tests that
// only care about pipeline wiring.
type fakeKeys struct {
	pkh string
	err error
}

func (f *fakeKeys) PublicKeyHash() string { return f.pkh }

func (f *fakeKeys) Sign(payload []byte, watermark keys.Watermark, chainID []byte) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}

	signed := append(append([]byte{}, payload...), 0xAA, 0xBB)

	return signed, "sig" + f.pkh, nil
}

var _ keys.Provider = (*fakeKeys)(nil)
