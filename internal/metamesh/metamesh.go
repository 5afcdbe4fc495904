// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package contains the metamesh-node run function.
// This is separate from the main package to facilitate testing.
package metamesh

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/metamesh-labs/metamesh-node/internal/api"
	"github.com/metamesh-labs/metamesh-node/internal/commons"
	"github.com/metamesh-labs/metamesh-node/internal/invoice"
	"github.com/metamesh-labs/metamesh-node/internal/ipfs"
	"github.com/metamesh-labs/metamesh-node/internal/model"
	"github.com/metamesh-labs/metamesh-node/internal/proof"
	"github.com/metamesh-labs/metamesh-node/internal/supervisor"
)

const DefaultHttpPort = 3333
const HttpTimeout = 10 * time.Second

// Options to metamesh-node.
type MetameshOpts struct {
	HttpAddress string
	HttpPort    int

	// DB to use: sqlite (default) or postgres.
	DbImplementation string

	// The sqlite file to load the state. Empty selects an in-memory db.
	SqliteFile string

	// Content-addressed backend: real or fallback.
	PinnerBackend string

	PinningServiceUrl   string
	PinningServiceToken string
}

// Create the options struct with default values.
func NewMetameshOpts() MetameshOpts {
	return MetameshOpts{
		HttpAddress:       "127.0.0.1",
		HttpPort:          DefaultHttpPort,
		DbImplementation:  commons.DbImplementationSqlite,
		SqliteFile:        "",
		PinnerBackend:     string(ipfs.BackendFallback),
		PinningServiceUrl: "https://api.nft.storage",
	}
}

// Create the metamesh-node supervisor.
func NewSupervisor(opts MetameshOpts) (supervisor.SupervisorWorker, error) {
	var w supervisor.SupervisorWorker
	w.Name = "metamesh-node"

	db, err := commons.OpenDB(opts.DbImplementation, opts.SqliteFile)
	if err != nil {
		return w, err
	}
	invoiceRepository := &model.InvoiceRepository{Db: db}
	if err := invoiceRepository.CreateTables(); err != nil {
		return w, err
	}
	walletRepository := &model.WalletRepository{Db: db}
	if err := walletRepository.CreateTables(); err != nil {
		return w, err
	}

	backend, err := ipfs.ParseBackend(opts.PinnerBackend)
	if err != nil {
		return w, err
	}
	pinner := ipfs.NewPinner(backend, opts.PinningServiceUrl, opts.PinningServiceToken)
	invoices := invoice.NewService(invoiceRepository, pinner)
	proofs := proof.NewRegistry()

	e := echo.New()
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		ErrorMessage: "Request timed out",
		Timeout:      HttpTimeout,
	}))
	api.Register(e, invoices, proofs, walletRepository)

	w.Workers = append(w.Workers, supervisor.HttpWorker{
		Address: fmt.Sprintf("%v:%v", opts.HttpAddress, opts.HttpPort),
		Handler: e,
	})
	slog.Info("Listening", "port", opts.HttpPort, "pinner", backend)
	return w, nil
}
