package baker

import (
	"context"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/tez-baker/baker/keys"
	"github.com/tez-baker/baker/rpc"
)

// forgeSignPreapplyInject runs the shared single-content operation pipeline
// both endorsements and seed-nonce revelations share:
// forge the unsigned bytes, sign them under watermark, preapply the signed
// operation, and on acceptance inject the raw signed bytes.
//
// It returns the injected operation hash. A preapply rejection is returned
// as an error and the caller decides what that means for its marker state;
// this helper never touches endorsed_levels/baked_levels/bad_ops itself.
func forgeSignPreapplyInject(
	ctx context.Context,
	client rpc.Client,
	provider keys.Provider,
	watermark keys.Watermark,
	chainID, branch, protocolID string,
	contents []rpc.OperationContent,
) (opHash string, err error) {
	unsigned := rpc.UnsignedOperation{Branch: branch, Contents: contents}

	forgedHex, err := client.ForgeOperation(ctx, chainID, branch, unsigned)
	if err != nil {
		return "", errors.Wrap(err, "forge operation")
	}

	forgedBytes, err := hex.DecodeString(forgedHex)
	if err != nil {
		return "", errors.Wrap(err, "decode forged operation hex")
	}

	signedBytes, prefixSig, err := provider.Sign(forgedBytes, watermark, []byte(chainID))
	if err != nil {
		return "", errors.Wrap(err, "sign operation")
	}

	signed := rpc.SignedOperation{
		Branch:    branch,
		Contents:  contents,
		Protocol:  protocolID,
		Signature: prefixSig,
	}

	applied, err := client.PreapplyOperations(ctx, chainID, branch, []rpc.SignedOperation{signed})
	if err != nil {
		return "", errors.Wrap(err, "preapply operation")
	}

	if len(applied) == 0 {
		return "", errors.New("preapply operation: not accepted")
	}

	opHash, err = client.InjectOperation(ctx, hex.EncodeToString(signedBytes))
	if err != nil {
		return "", errors.Wrap(err, "inject operation")
	}

	return opHash, nil
}
