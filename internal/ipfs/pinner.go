// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package pins invoice metadata to content-addressed storage.
// The backend is chosen once at startup: a real pinning service, or a
// deterministic local derivation for offline and demo use.
package ipfs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"
)

const URIScheme = "ipfs://"

type Strategy string

const (
	StrategyReal     Strategy = "real"
	StrategyFallback Strategy = "fallback"
)

type Backend string

const (
	BackendReal     Backend = "real"
	BackendFallback Backend = "fallback"
)

func ParseBackend(value string) (Backend, error) {
	switch Backend(value) {
	case BackendReal:
		return BackendReal, nil
	case BackendFallback, "":
		return BackendFallback, nil
	default:
		return "", fmt.Errorf("ipfs: unknown backend %q", value)
	}
}

type PinResult struct {
	URI      string
	Strategy Strategy
}

type Pinner interface {
	Pin(ctx context.Context, payload any) (*PinResult, error)
}

// NewPinner builds the pinner for the configured backend. The real backend
// is wrapped so that a pinning failure degrades to the fallback derivation
// instead of failing invoice creation.
func NewPinner(backend Backend, serviceUrl string, token string) Pinner {
	switch backend {
	case BackendReal:
		return &ResilientPinner{
			Primary: &PinningServiceClient{
				Endpoint: serviceUrl,
				Token:    token,
				Client:   http.DefaultClient,
			},
			Fallback: &FallbackPinner{},
		}
	default:
		return &FallbackPinner{}
	}
}

// FallbackPinner derives a stable ipfs:// URI from the content itself, so
// that pinning identical metadata twice yields the same URI. The URI is not
// retrievable from any gateway.
type FallbackPinner struct{}

func (p *FallbackPinner) Pin(ctx context.Context, payload any) (*PinResult, error) {
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	digest := sha256.Sum256(content)
	cid := "Qm" + hex.EncodeToString(digest[:])[:44]
	return &PinResult{
		URI:      URIScheme + cid,
		Strategy: StrategyFallback,
	}, nil
}

// PinningServiceClient uploads JSON to an nft.storage compatible pinning
// service and returns the content id reported by the service.
type PinningServiceClient struct {
	Endpoint string
	Token    string
	Client   *http.Client
}

func (p *PinningServiceClient) Pin(ctx context.Context, payload any) (*PinResult, error) {
	if p.Token == "" {
		return nil, fmt.Errorf("ipfs: missing pinning service credentials")
	}
	content, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.Endpoint+"/upload", bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+p.Token)
	req.Header.Set("Content-Type", "application/json")
	res, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ipfs: pinning service returned status %d", res.StatusCode)
	}
	cid := gjson.GetBytes(body, "value.cid").String()
	if cid == "" {
		return nil, fmt.Errorf("ipfs: pinning service response has no cid")
	}
	return &PinResult{
		URI:      URIScheme + cid,
		Strategy: StrategyReal,
	}, nil
}

// ResilientPinner degrades to the fallback derivation when the primary
// backend fails. The failure is logged and the strategy used is reported
// to the caller.
type ResilientPinner struct {
	Primary  Pinner
	Fallback *FallbackPinner
}

func (p *ResilientPinner) Pin(ctx context.Context, payload any) (*PinResult, error) {
	result, err := p.Primary.Pin(ctx, payload)
	if err == nil {
		return result, nil
	}
	slog.Warn("ipfs: primary pinning failed, using fallback derivation", "error", err)
	return p.Fallback.Pin(ctx, payload)
}
