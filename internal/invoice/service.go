// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package contains the invoice lifecycle manager. It is the only
// writer of invoice records: create pins the metadata and persists the
// pending record in the same call, mark-issued performs the single
// pending -> issued transition.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/metamesh-labs/metamesh-node/internal/ipfs"
	"github.com/metamesh-labs/metamesh-node/internal/model"
)

// ErrPublish is returned when the metadata could not be published and no
// fallback derivation applied.
var ErrPublish = errors.New("metadata publish failed")

type CreateRequest struct {
	RecipientDID     string `json:"recipientDID"`
	RecipientAddress string `json:"recipientAddress"`
	Amount           string `json:"amount"`
	Description      string `json:"description"`
	Issuer           string `json:"issuer"`
}

type CreateResponse struct {
	ID          string `json:"id"`
	MetadataURI string `json:"metadataURI"`
}

type Service struct {
	invoices *model.InvoiceRepository
	pinner   ipfs.Pinner
}

func NewService(invoices *model.InvoiceRepository, pinner ipfs.Pinner) *Service {
	return &Service{
		invoices: invoices,
		pinner:   pinner,
	}
}

// CreateInvoice builds the metadata with a server-assigned issue time, pins
// it, and persists the pending record. The id is a UUID so that ids never
// collide under rapid calls.
func (s *Service) CreateInvoice(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	id := uuid.NewString()
	metadata := model.InvoiceMetadata{
		Name:             "MetaMesh Receipt " + id,
		Description:      req.Description,
		Issuer:           req.Issuer,
		RecipientDID:     req.RecipientDID,
		RecipientAddress: req.RecipientAddress,
		Amount:           req.Amount,
		IssuedAt:         time.Now().UTC(),
	}
	result, err := s.pinner.Pin(ctx, metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublish, err)
	}
	slog.Info("invoice: metadata pinned",
		"id", id, "uri", result.URI, "strategy", result.Strategy)
	metadata.PinStrategy = string(result.Strategy)
	_, err = s.invoices.Save(ctx, &model.InvoiceRecord{
		ID:          id,
		MetadataURI: result.URI,
		Metadata:    metadata,
		Status:      model.InvoiceStatusPending,
	})
	if err != nil {
		return nil, err
	}
	return &CreateResponse{ID: id, MetadataURI: result.URI}, nil
}

// MarkIssued stores the ledger transaction id and moves the invoice to its
// terminal state. Delegates the idempotent-or-reject contract to the store.
func (s *Service) MarkIssued(ctx context.Context, id string, txId string) (*model.InvoiceRecord, error) {
	invoice, err := s.invoices.MarkIssued(ctx, id, txId)
	if err != nil {
		return nil, err
	}
	slog.Info("invoice: marked issued", "id", id, "txId", txId)
	return invoice, nil
}

// ListInvoices returns a read-only snapshot keyed by invoice id.
func (s *Service) ListInvoices(ctx context.Context) (map[string]*model.InvoiceRecord, error) {
	return s.invoices.GetAll(ctx)
}
