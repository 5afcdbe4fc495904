package cardano

import "encoding/hex"

// Metadata labels. 721 carries the display metadata, 674 is the reserved
// side channel that duplicates the proof hash when one is attached.
const (
	MetadataLabelDisplay     uint64 = 721
	MetadataLabelAttestation uint64 = 674
)

// MinLovelaceReturn is the minimal native payment returned to the signer's
// own address so that no zero-value output is left behind.
const MinLovelaceReturn int64 = 2_000_000

type MintAsset struct {
	PolicyID  string
	AssetName string
	Quantity  int64
}

// Unit is the ledger identifier of the asset: policy id concatenated with
// the hex-encoded asset name.
func (a MintAsset) Unit() string {
	return a.PolicyID + hex.EncodeToString([]byte(a.AssetName))
}

type Output struct {
	Address  string
	Lovelace int64
	// Assets maps unit -> quantity.
	Assets map[string]int64
}

// TxDraft expresses one atomic receipt transaction: mint one unit, attach
// the metadata blocks, pay the unit to the recipient and the minimal value
// back to the signer. Either all effects land on the ledger or none do.
type TxDraft struct {
	NetworkID NetworkID
	Mint      MintAsset
	Metadata  map[uint64]any
	Outputs   []Output
}
