// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package contains the HTTP bindings of the backend: the invoice
// lifecycle endpoints, the proof evaluator endpoints, and the wallet
// registry.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/metamesh-labs/metamesh-node/internal/invoice"
	"github.com/metamesh-labs/metamesh-node/internal/model"
	"github.com/metamesh-labs/metamesh-node/internal/proof"
)

// InvoiceManager is the lifecycle surface consumed by the handlers.
type InvoiceManager interface {
	CreateInvoice(ctx context.Context, req invoice.CreateRequest) (*invoice.CreateResponse, error)
	MarkIssued(ctx context.Context, id string, txId string) (*model.InvoiceRecord, error)
	ListInvoices(ctx context.Context) (map[string]*model.InvoiceRecord, error)
}

// Register the backend API to echo.
func Register(e *echo.Echo, invoices InvoiceManager, proofs *proof.Registry, wallets *model.WalletRepository) {
	a := &backendAPI{invoices, proofs, wallets}
	e.POST("/issue-request", a.issueRequest)
	e.POST("/mark-issued", a.markIssued)
	e.GET("/requests", a.listRequests)
	e.POST("/proofs", a.evaluateProof)
	e.POST("/proofs/verify", a.verifyProof)
	e.POST("/wallet/register", a.registerWallet)
	e.GET("/wallet/:publicKey", a.findWallet)
}

// Shared struct for request handlers.
type backendAPI struct {
	invoices InvoiceManager
	proofs   *proof.Registry
	wallets  *model.WalletRepository
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *backendAPI) issueRequest(c echo.Context) error {
	var req invoice.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	if req.RecipientDID == "" || req.RecipientAddress == "" || req.Amount == "" ||
		req.Description == "" || req.Issuer == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{
			"recipientDID, recipientAddress, amount, description and issuer are required"})
	}
	res, err := a.invoices.CreateInvoice(c.Request().Context(), req)
	if err != nil {
		slog.Error("api: issue-request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

type markIssuedRequest struct {
	ID   string `json:"id"`
	TxID string `json:"txId"`
}

type markIssuedResponse struct {
	Ok bool `json:"ok"`
}

func (a *backendAPI) markIssued(c echo.Context) error {
	var req markIssuedRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	if req.ID == "" || req.TxID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{"id and txId are required"})
	}
	_, err := a.invoices.MarkIssued(c.Request().Context(), req.ID, req.TxID)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, markIssuedResponse{Ok: true})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{err.Error()})
	case errors.Is(err, model.ErrAlreadyIssued):
		return c.JSON(http.StatusConflict, errorResponse{err.Error()})
	default:
		slog.Error("api: mark-issued failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
}

func (a *backendAPI) listRequests(c echo.Context) error {
	invoices, err := a.invoices.ListInvoices(c.Request().Context())
	if err != nil {
		slog.Error("api: list requests failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	return c.JSON(http.StatusOK, invoices)
}

type proofRequest struct {
	ContractName string       `json:"contractName"`
	Inputs       proof.Inputs `json:"inputs"`
	ProofHash    string       `json:"proofHash"`
}

func (a *backendAPI) evaluateProof(c echo.Context) error {
	var req proofRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	if req.ContractName == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{"contractName is required"})
	}
	artifact, err := a.proofs.Evaluate(req.ContractName, req.Inputs)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, artifact)
	case errors.Is(err, proof.ErrUnknownContract), errors.Is(err, proof.ErrMissingInput):
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
}

type verifyProofResponse struct {
	Valid bool `json:"valid"`
}

func (a *backendAPI) verifyProof(c echo.Context) error {
	var req proofRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	if req.ContractName == "" || req.ProofHash == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{"contractName and proofHash are required"})
	}
	valid := a.proofs.Verify(req.Inputs, req.ContractName, req.ProofHash)
	return c.JSON(http.StatusOK, verifyProofResponse{Valid: valid})
}

type registerWalletRequest struct {
	PublicKey string `json:"publicKey"`
	CreatedAt string `json:"createdAt"`
}

type registerWalletResponse struct {
	Success   bool   `json:"success"`
	PublicKey string `json:"publicKey"`
}

func (a *backendAPI) registerWallet(c echo.Context) error {
	var req registerWalletRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{err.Error()})
	}
	if req.PublicKey == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{"publicKey is required"})
	}
	var createdAt time.Time
	if req.CreatedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CreatedAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{"createdAt must be RFC 3339"})
		}
		createdAt = parsed
	}
	_, err := a.wallets.Register(c.Request().Context(), req.PublicKey, createdAt)
	if err != nil {
		slog.Error("api: wallet registration failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	return c.JSON(http.StatusOK, registerWalletResponse{Success: true, PublicKey: req.PublicKey})
}

type walletNotFoundResponse struct {
	Exists bool `json:"exists"`
}

func (a *backendAPI) findWallet(c echo.Context) error {
	wallet, err := a.wallets.Find(c.Request().Context(), c.Param("publicKey"))
	if err != nil {
		slog.Error("api: wallet lookup failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{err.Error()})
	}
	if wallet == nil {
		return c.JSON(http.StatusOK, walletNotFoundResponse{Exists: false})
	}
	return c.JSON(http.StatusOK, wallet)
}
