// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// The model package holds the records shared by the node components and the
// sqlx repositories that persist them.
package model

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record id is unknown to the store.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyIssued is returned when an invoice is marked issued a second
	// time with a different transaction id.
	ErrAlreadyIssued = errors.New("invoice already issued")
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusIssued  InvoiceStatus = "issued"
)

// InvoiceMetadata is the JSON object pinned to content-addressed storage.
// The record keeps a snapshot of it, fixed at creation time.
type InvoiceMetadata struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Issuer           string    `json:"issuer"`
	RecipientDID     string    `json:"recipientDID"`
	RecipientAddress string    `json:"recipientAddress"`
	Amount           string    `json:"amount"`
	IssuedAt         time.Time `json:"issuedAt"`

	// PinStrategy records whether the metadata landed on the real
	// content-addressed backend or on the local fallback derivation.
	PinStrategy string `json:"pinStrategy,omitempty"`
}

// InvoiceRecord tracks a payment request through pending -> issued.
// TxID is non-empty if and only if Status is issued.
type InvoiceRecord struct {
	ID          string          `json:"id"`
	MetadataURI string          `json:"metadataURI"`
	Metadata    InvoiceMetadata `json:"metadata"`
	Status      InvoiceStatus   `json:"status"`
	TxID        string          `json:"txId,omitempty"`
}

// WalletRecord is an entry in the wallet registry.
type WalletRecord struct {
	PublicKey string    `json:"publicKey"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}
