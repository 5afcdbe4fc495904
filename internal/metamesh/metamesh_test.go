// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

package metamesh

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/metamesh-labs/metamesh-node/internal/cardano"
	"github.com/metamesh-labs/metamesh-node/internal/commons"
	"github.com/metamesh-labs/metamesh-node/internal/wallet"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
)

const testTimeout = 100 * time.Second

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon " +
	"abandon abandon abandon abandon about"

type MetameshSuite struct {
	suite.Suite
	ctx           context.Context
	timeoutCancel context.CancelFunc
	workerCancel  context.CancelFunc
	workerResult  chan error
	dbFactory     *commons.DbFactory
	baseUrl       string
	nonce         int
}

// setupTest is called by the test cases instead of SetupTest because each
// test case needs its own options.
func (s *MetameshSuite) setupTest(opts MetameshOpts) {
	s.nonce += 1
	commons.ConfigureLog(slog.LevelDebug)

	port, err := commons.FindFreePort()
	s.Require().NoError(err)
	opts.HttpPort = port

	s.dbFactory = commons.NewDbFactory()
	opts.SqliteFile = filepath.Join(s.dbFactory.TempDir,
		fmt.Sprintf("metamesh-%v.sqlite3", s.nonce))

	s.ctx, s.timeoutCancel = context.WithTimeout(context.Background(), testTimeout)
	s.workerResult = make(chan error)

	var workerCtx context.Context
	workerCtx, s.workerCancel = context.WithCancel(s.ctx)

	w, err := NewSupervisor(opts)
	s.Require().NoError(err)

	ready := make(chan struct{})
	go func() {
		s.workerResult <- w.Start(workerCtx, ready)
	}()
	select {
	case <-s.ctx.Done():
		s.Fail("context error", s.ctx.Err())
	case err := <-s.workerResult:
		s.Fail("worker exited before being ready", err)
	case <-ready:
		s.T().Log("metamesh-node ready")
	}

	s.baseUrl = fmt.Sprintf("http://%s:%v", opts.HttpAddress, opts.HttpPort)
}

func (s *MetameshSuite) TearDownTest() {
	s.workerCancel()
	select {
	case <-s.ctx.Done():
		s.Fail("context error", s.ctx.Err())
	case err := <-s.workerResult:
		s.NoError(err)
	}
	s.timeoutCancel()
	if s.dbFactory != nil {
		s.dbFactory.Cleanup()
	}
	s.T().Log("teardown ok.")
}

func TestMetameshSuite(t *testing.T) {
	suite.Run(t, new(MetameshSuite))
}

func (s *MetameshSuite) TestIssueMintMarkRoundTrip() {
	opts := NewMetameshOpts()
	s.setupTest(opts)

	session, err := wallet.NewDevSession(testMnemonic, cardano.NetworkPreprod,
		wallet.NewDevLedger())
	s.Require().NoError(err)

	body := s.postJSON("/issue-request", map[string]any{
		"recipientDID":     "did:example:alice",
		"recipientAddress": session.Address(),
		"amount":           "1000000",
		"description":      "two coffees",
		"issuer":           "MetaMesh Cafe",
	}, http.StatusOK)
	id := gjson.GetBytes(body, "id").String()
	metadataURI := gjson.GetBytes(body, "metadataURI").String()
	s.NotEmpty(id)
	s.Contains(metadataURI, "ipfs://")

	body = s.getJSON("/requests", http.StatusOK)
	s.Equal("pending", gjson.GetBytes(body, id+".status").String())
	s.False(gjson.GetBytes(body, id+".txId").Exists())

	gateway := cardano.NewGateway()
	txId, err := gateway.Mint(s.ctx, session, metadataURI, session.Address(), "")
	s.Require().NoError(err)
	s.Len(txId, 64)

	body = s.postJSON("/mark-issued", map[string]any{
		"id":   id,
		"txId": txId,
	}, http.StatusOK)
	s.True(gjson.GetBytes(body, "ok").Bool())

	// same txId again is a no-op success
	s.postJSON("/mark-issued", map[string]any{
		"id":   id,
		"txId": txId,
	}, http.StatusOK)

	// a different txId for the same invoice is a conflict
	s.postJSON("/mark-issued", map[string]any{
		"id":   id,
		"txId": "deadbeef",
	}, http.StatusConflict)

	body = s.getJSON("/requests", http.StatusOK)
	s.Equal("issued", gjson.GetBytes(body, id+".status").String())
	s.Equal(txId, gjson.GetBytes(body, id+".txId").String())
}

func (s *MetameshSuite) TestProofEndpointsOverHttp() {
	opts := NewMetameshOpts()
	s.setupTest(opts)

	body := s.postJSON("/proofs", map[string]any{
		"contractName": "qualifyProof",
		"inputs":       map[string]int64{"score": 80, "threshold": 50},
	}, http.StatusOK)
	s.True(gjson.GetBytes(body, "output").Bool())
	proofHash := gjson.GetBytes(body, "proofHash").String()
	s.Len(proofHash, 64)

	body = s.postJSON("/proofs/verify", map[string]any{
		"contractName": "qualifyProof",
		"inputs":       map[string]int64{"score": 80, "threshold": 50},
		"proofHash":    proofHash,
	}, http.StatusOK)
	s.True(gjson.GetBytes(body, "valid").Bool())

	s.postJSON("/proofs", map[string]any{
		"contractName": "unknownContract",
		"inputs":       map[string]int64{},
	}, http.StatusBadRequest)
}

func (s *MetameshSuite) TestWalletRegistryOverHttp() {
	opts := NewMetameshOpts()
	s.setupTest(opts)

	body := s.postJSON("/wallet/register", map[string]any{
		"publicKey": "addr_test1qz0example",
	}, http.StatusOK)
	s.True(gjson.GetBytes(body, "success").Bool())

	body = s.getJSON("/wallet/addr_test1qz0example", http.StatusOK)
	s.Equal("addr_test1qz0example", gjson.GetBytes(body, "publicKey").String())

	body = s.getJSON("/wallet/unknown", http.StatusOK)
	s.False(gjson.GetBytes(body, "exists").Bool())
}

//
// Helper functions
//

func (s *MetameshSuite) postJSON(path string, payload any, wantStatus int) []byte {
	data, err := json.Marshal(payload)
	s.Require().NoError(err)
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost,
		s.baseUrl+path, bytes.NewReader(data))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	return s.doRequest(req, wantStatus)
}

func (s *MetameshSuite) getJSON(path string, wantStatus int) []byte {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet,
		s.baseUrl+path, nil)
	s.Require().NoError(err)
	return s.doRequest(req, wantStatus)
}

func (s *MetameshSuite) doRequest(req *http.Request, wantStatus int) []byte {
	res, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	s.Require().NoError(err)
	s.Require().Equal(wantStatus, res.StatusCode, string(body))
	return body
}
