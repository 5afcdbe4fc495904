package cardano

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var (
	// ErrWalletUnavailable is returned when no connected signing session is
	// available (extension locked, disconnected, session lost).
	ErrWalletUnavailable = errors.New("wallet unavailable")

	// ErrUserRejected is returned when the user dismisses the signing prompt.
	ErrUserRejected = errors.New("user rejected signing")

	// ErrSubmissionFailed is returned when the signed transaction is not
	// accepted by the network.
	ErrSubmissionFailed = errors.New("transaction submission failed")
)

// WalletSession is the capability surface of the external signing agent.
// The agent is the sole owner of key material; the node never sees it.
type WalletSession interface {
	Address() string
	NetworkID() NetworkID
	PaymentKeyHash() []byte

	// SignAndSubmit signs the draft and submits it. The signing prompt is
	// user-paced: the call may block until the user approves or dismisses
	// it, and a dismissal surfaces as ErrUserRejected.
	SignAndSubmit(ctx context.Context, draft *TxDraft) (string, error)
}

const assetNamePrefix = "MetaMeshReceipt"

// Gateway builds and submits the one-shot receipt mint. It keeps no shared
// state besides the asset name counter; each Mint call is independent.
type Gateway struct {
	assetCounter atomic.Uint64
}

func NewGateway() *Gateway {
	return &Gateway{}
}

// Mint submits one atomic transaction that mints a single unit of a fresh
// asset, attaches the display metadata (and the proof attestation when a
// proof hash is given), transfers the unit to the recipient and returns the
// minimal value to the signer. Failures are surfaced verbatim and never
// retried here: the caller must confirm non-submission (see ChainClient)
// before minting again under a fresh asset name.
func (g *Gateway) Mint(
	ctx context.Context,
	session WalletSession,
	metadataURI string,
	recipientAddress string,
	proofHash string,
) (string, error) {
	if session == nil {
		return "", ErrWalletUnavailable
	}
	network := session.NetworkID()
	if err := ValidateAddress(recipientAddress, network); err != nil {
		return "", err
	}
	policy, err := NewSigPolicy(session.PaymentKeyHash())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWalletUnavailable, err)
	}
	assetName, err := g.nextAssetName()
	if err != nil {
		return "", err
	}
	mint := MintAsset{
		PolicyID:  policy.ID,
		AssetName: assetName,
		Quantity:  1,
	}

	display := map[string]any{
		"name":        "MetaMesh Receipt",
		"description": "Payment receipt",
		"image":       metadataURI,
	}
	if proofHash != "" {
		display["proofHash"] = proofHash
	}
	metadata := map[uint64]any{
		MetadataLabelDisplay: map[string]any{
			policy.ID: map[string]any{
				assetName: display,
			},
		},
	}
	if proofHash != "" {
		metadata[MetadataLabelAttestation] = map[string]any{
			"proofHash": proofHash,
		}
	}

	draft := &TxDraft{
		NetworkID: network,
		Mint:      mint,
		Metadata:  metadata,
		Outputs: []Output{
			{
				Address: recipientAddress,
				Assets:  map[string]int64{mint.Unit(): 1},
			},
			{
				Address:  session.Address(),
				Lovelace: MinLovelaceReturn,
			},
		},
	}

	txId, err := session.SignAndSubmit(ctx, draft)
	if err != nil {
		return "", err
	}
	slog.Info("cardano: receipt minted",
		"txId", txId, "policyId", policy.ID, "assetName", assetName)
	return txId, nil
}

// nextAssetName combines a monotonic counter with a random suffix so that
// names stay unique even under rapid repeated calls.
func (g *Gateway) nextAssetName() (string, error) {
	suffix := make([]byte, 2)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	n := g.assetCounter.Add(1)
	return fmt.Sprintf("%s%dx%s", assetNamePrefix, n, hex.EncodeToString(suffix)), nil
}
