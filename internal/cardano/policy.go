package cardano

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Native script tag for a single-signature policy.
const sigScriptTag = 0x00

const policyIdSize = 28

// Policy is a one-shot single-signer minting policy: the minting authority
// is exactly the key behind the connected wallet session.
type Policy struct {
	ID      string
	KeyHash []byte
}

// NewSigPolicy derives the policy from the signer's payment key hash. The
// policy id is the blake2b-224 digest of the serialized sig script, so the
// same signer always derives the same policy.
func NewSigPolicy(keyHash []byte) (*Policy, error) {
	if len(keyHash) == 0 {
		return nil, fmt.Errorf("missing payment key hash")
	}
	script := append([]byte{sigScriptTag}, keyHash...)
	digest, err := blake2b.New(policyIdSize, nil)
	if err != nil {
		return nil, err
	}
	digest.Write(script)
	return &Policy{
		ID:      hex.EncodeToString(digest.Sum(nil)),
		KeyHash: keyHash,
	}, nil
}
