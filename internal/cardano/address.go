// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package is the client-side boundary to the ledger: it validates
// addresses, derives the one-shot minting policy, builds the receipt
// transaction draft, and drives the wallet session that signs and submits
// it. The ledger's full transaction grammar stays with the wallet; the
// draft only expresses what the receipt mint needs.
package cardano

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// NetworkID identifies one of the exactly two supported networks.
type NetworkID int

const (
	NetworkPreprod NetworkID = 0
	NetworkMainnet NetworkID = 1
)

const (
	hrpMainnet = "addr"
	hrpPreprod = "addr_test"
)

func (n NetworkID) String() string {
	if n == NetworkMainnet {
		return "mainnet"
	}
	return "preprod"
}

func (n NetworkID) addressHrp() string {
	if n == NetworkMainnet {
		return hrpMainnet
	}
	return hrpPreprod
}

// ValidateAddress checks that the address is well-formed bech32 and carries
// the prefix of the given network. Shelley addresses exceed the 90 char
// bech32 limit, hence the no-limit decode.
func ValidateAddress(address string, network NetworkID) error {
	hrp, _, err := bech32.DecodeNoLimit(address)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}
	if hrp != network.addressHrp() {
		return fmt.Errorf("address %q does not belong to %v", address, network)
	}
	return nil
}

// EncodeAddress builds a bech32 address for the network from the raw
// payload (header byte plus key hash).
func EncodeAddress(payload []byte, network NetworkID) (string, error) {
	converted, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(network.addressHrp(), converted)
}
