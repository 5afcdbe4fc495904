// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package provides the built-in signing agent used for development
// and tests. It plays the role a browser extension plays in production:
// it owns the key material, reports an address, and signs and submits
// receipt transactions. Keys never leave this package.
package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/metamesh-labs/metamesh-node/internal/cardano"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
)

const (
	purposeIndex  = 1852
	coinTypeIndex = 1815
)

// Enterprise address headers (payment key only, no stake part).
const (
	addressHeaderPreprod = 0x60
	addressHeaderMainnet = 0x61
)

const keyHashSize = 28

// GenerateMnemonic creates a fresh 12-word mnemonic for a dev session.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// DevSession implements cardano.WalletSession backed by a local key derived
// from a mnemonic, submitting into a DevLedger.
type DevSession struct {
	address string
	network cardano.NetworkID
	keyHash []byte
	ledger  *DevLedger
}

func NewDevSession(mnemonic string, network cardano.NetworkID, ledger *DevLedger) (*DevSession, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	keyHash, err := deriveKeyHash(mnemonic)
	if err != nil {
		return nil, err
	}
	header := byte(addressHeaderPreprod)
	if network == cardano.NetworkMainnet {
		header = addressHeaderMainnet
	}
	address, err := cardano.EncodeAddress(append([]byte{header}, keyHash...), network)
	if err != nil {
		return nil, err
	}
	return &DevSession{
		address: address,
		network: network,
		keyHash: keyHash,
		ledger:  ledger,
	}, nil
}

func (s *DevSession) Address() string {
	return s.address
}

func (s *DevSession) NetworkID() cardano.NetworkID {
	return s.network
}

func (s *DevSession) PaymentKeyHash() []byte {
	return s.keyHash
}

func (s *DevSession) SignAndSubmit(ctx context.Context, draft *cardano.TxDraft) (string, error) {
	if s.ledger == nil {
		return "", cardano.ErrWalletUnavailable
	}
	return s.ledger.Submit(ctx, draft, s.keyHash)
}

// deriveKeyHash walks the 1852'/1815'/0'/0/0 path and hashes the resulting
// public key with blake2b-224.
func deriveKeyHash(mnemonic string) ([]byte, error) {
	seed := bip39.NewSeed(mnemonic, "")
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("fail to generate master key: %w", err)
	}
	path := []uint32{
		hdkeychain.HardenedKeyStart + purposeIndex,
		hdkeychain.HardenedKeyStart + coinTypeIndex,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	}
	childKey := masterKey
	for _, index := range path {
		childKey, err = childKey.Derive(index)
		if err != nil {
			return nil, fmt.Errorf("fail to derive key: %w", err)
		}
	}
	pubKey, err := childKey.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("fail to obtain public key: %w", err)
	}
	digest, err := blake2b.New(keyHashSize, nil)
	if err != nil {
		return nil, err
	}
	digest.Write(pubKey.SerializeCompressed())
	return digest.Sum(nil), nil
}
