package wallet

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/metamesh-labs/metamesh-node/internal/cardano"
	"golang.org/x/crypto/blake2b"
)

// DevLedger is the in-memory stand-in for the real network used by the dev
// session. It enforces the properties the receipt mint relies on: the
// minting authority is the signer, exactly one unit is minted, and an
// asset unit can be minted at most once. The whole draft lands or none of
// it does.
type DevLedger struct {
	mutex sync.Mutex
	txs   map[string]*cardano.TxDraft
	// assets maps unit -> txId of the mint.
	assets map[string]string
}

func NewDevLedger() *DevLedger {
	return &DevLedger{
		txs:    map[string]*cardano.TxDraft{},
		assets: map[string]string{},
	}
}

func (l *DevLedger) Submit(ctx context.Context, draft *cardano.TxDraft, signerKeyHash []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", cardano.ErrUserRejected, err)
	}
	if draft.Mint.Quantity != 1 {
		return "", fmt.Errorf("%w: mint quantity must be 1", cardano.ErrSubmissionFailed)
	}
	policy, err := cardano.NewSigPolicy(signerKeyHash)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cardano.ErrSubmissionFailed, err)
	}
	if policy.ID != draft.Mint.PolicyID {
		return "", fmt.Errorf("%w: policy not signable by session key", cardano.ErrSubmissionFailed)
	}

	txId, err := draftHash(draft)
	if err != nil {
		return "", fmt.Errorf("%w: %w", cardano.ErrSubmissionFailed, err)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	unit := draft.Mint.Unit()
	if _, minted := l.assets[unit]; minted {
		return "", fmt.Errorf("%w: asset %s already minted", cardano.ErrSubmissionFailed, unit)
	}
	l.txs[txId] = draft
	l.assets[unit] = txId
	slog.Debug("devledger: transaction accepted", "txId", txId, "unit", unit)
	return txId, nil
}

// Tx returns the submitted draft, or nil for an unknown id.
func (l *DevLedger) Tx(txId string) *cardano.TxDraft {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.txs[txId]
}

// AssetMinted mirrors the chain query a caller would run against koios
// before retrying a failed mint.
func (l *DevLedger) AssetMinted(unit string) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	_, minted := l.assets[unit]
	return minted
}

func draftHash(draft *cardano.TxDraft) (string, error) {
	content, err := json.Marshal(draft)
	if err != nil {
		return "", err
	}
	digest := blake2b.Sum256(content)
	return hex.EncodeToString(digest[:]), nil
}
