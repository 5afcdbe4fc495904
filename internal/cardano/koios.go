package cardano

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"
)

const (
	KoiosMainnetUrl = "https://api.koios.rest/api/v1"
	KoiosPreprodUrl = "https://preprod.koios.rest/api/v1"
)

// ChainClient queries a koios endpoint for on-chain state. Callers use it
// to confirm that a failed mint really did not land before retrying with a
// fresh asset name.
type ChainClient struct {
	BaseUrl string
	Client  *http.Client
}

func NewChainClient(network NetworkID) *ChainClient {
	baseUrl := KoiosPreprodUrl
	if network == NetworkMainnet {
		baseUrl = KoiosMainnetUrl
	}
	return &ChainClient{
		BaseUrl: baseUrl,
		Client:  http.DefaultClient,
	}
}

// AssetMinted reports whether any asset exists under the policy with the
// given name.
func (c *ChainClient) AssetMinted(ctx context.Context, policyId string, assetName string) (bool, error) {
	body, err := c.post(ctx, "/asset_info", map[string]any{
		"_asset_list": [][]string{{policyId, hex.EncodeToString([]byte(assetName))}},
	})
	if err != nil {
		return false, err
	}
	return len(gjson.GetBytes(body, "@this").Array()) > 0, nil
}

// TxConfirmed reports whether the transaction is on chain with at least one
// confirmation.
func (c *ChainClient) TxConfirmed(ctx context.Context, txId string) (bool, error) {
	body, err := c.post(ctx, "/tx_status", map[string]any{
		"_tx_hashes": []string{txId},
	})
	if err != nil {
		return false, err
	}
	confirmations := gjson.GetBytes(body, "0.num_confirmations")
	return confirmations.Exists() && confirmations.Int() > 0, nil
}

func (c *ChainClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseUrl+path, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		slog.Debug("koios: request failed", "path", path, "status", res.StatusCode)
		return nil, fmt.Errorf("koios: status %d for %s", res.StatusCode, path)
	}
	return body, nil
}
