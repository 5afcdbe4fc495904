package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/metamesh-labs/metamesh-node/internal/cardano"
	"github.com/metamesh-labs/metamesh-node/internal/commons"
	"github.com/stretchr/testify/suite"
)

// fixed mnemonic so the derived credential is stable across runs
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

type SessionSuite struct {
	suite.Suite
	ledger  *DevLedger
	session *DevSession
	gateway *cardano.Gateway
	ctx     context.Context
}

func (s *SessionSuite) SetupTest() {
	commons.ConfigureLog(slog.LevelDebug)
	s.ledger = NewDevLedger()
	session, err := NewDevSession(testMnemonic, cardano.NetworkPreprod, s.ledger)
	s.NoError(err)
	s.session = session
	s.gateway = cardano.NewGateway()
	s.ctx = context.Background()
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionSuite))
}

func (s *SessionSuite) TestDeterministicDerivation() {
	again, err := NewDevSession(testMnemonic, cardano.NetworkPreprod, s.ledger)
	s.NoError(err)
	s.Equal(s.session.Address(), again.Address())
	s.Equal(s.session.PaymentKeyHash(), again.PaymentKeyHash())
	s.True(strings.HasPrefix(s.session.Address(), "addr_test1"))
	s.Len(s.session.PaymentKeyHash(), 28)
}

func (s *SessionSuite) TestMainnetAddressPrefix() {
	session, err := NewDevSession(testMnemonic, cardano.NetworkMainnet, s.ledger)
	s.NoError(err)
	s.True(strings.HasPrefix(session.Address(), "addr1"))
	s.NoError(cardano.ValidateAddress(session.Address(), cardano.NetworkMainnet))
}

func (s *SessionSuite) TestInvalidMnemonic() {
	_, err := NewDevSession("not a mnemonic", cardano.NetworkPreprod, s.ledger)
	s.Error(err)
}

func (s *SessionSuite) TestGenerateMnemonic() {
	mnemonic, err := GenerateMnemonic()
	s.NoError(err)
	s.Len(strings.Fields(mnemonic), 12)

	_, err = NewDevSession(mnemonic, cardano.NetworkPreprod, s.ledger)
	s.NoError(err)
}

func (s *SessionSuite) TestMintThroughDevLedger() {
	txId, err := s.gateway.Mint(s.ctx, s.session, "ipfs://QmMeta", s.session.Address(), "")
	s.NoError(err)
	s.Len(txId, 64)

	draft := s.ledger.Tx(txId)
	s.NotNil(draft)
	s.True(s.ledger.AssetMinted(draft.Mint.Unit()))
}

func (s *SessionSuite) TestDuplicateUnitRejected() {
	txId, err := s.gateway.Mint(s.ctx, s.session, "ipfs://QmMeta", s.session.Address(), "")
	s.NoError(err)

	draft := s.ledger.Tx(txId)
	_, err = s.ledger.Submit(s.ctx, draft, s.session.PaymentKeyHash())
	s.ErrorIs(err, cardano.ErrSubmissionFailed)
}

func (s *SessionSuite) TestForeignPolicyRejected() {
	txId, err := s.gateway.Mint(s.ctx, s.session, "ipfs://QmMeta", s.session.Address(), "")
	s.NoError(err)
	draft := s.ledger.Tx(txId)

	otherKey := make([]byte, 28)
	copy(otherKey, s.session.PaymentKeyHash())
	otherKey[0] ^= 0xff
	draft.Mint.AssetName = draft.Mint.AssetName + "2"
	_, err = s.ledger.Submit(s.ctx, draft, otherKey)
	s.ErrorIs(err, cardano.ErrSubmissionFailed)
}

func (s *SessionSuite) TestNoLedgerIsWalletUnavailable() {
	session, err := NewDevSession(testMnemonic, cardano.NetworkPreprod, nil)
	s.NoError(err)
	_, err = session.SignAndSubmit(s.ctx, &cardano.TxDraft{})
	s.ErrorIs(err, cardano.ErrWalletUnavailable)
}

func (s *SessionSuite) TestRegisterWithBackend() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/wallet/register", r.URL.Path)
		_, err := w.Write([]byte(`{"success":true,"publicKey":"pub1"}`))
		s.NoError(err)
	}))
	defer server.Close()

	status := RegisterWithBackend(s.ctx, server.Client(), server.URL, "pub1")
	s.Equal(RegistrationOk, status)
}

func (s *SessionSuite) TestRegisterWithBackendSwallowsFailure() {
	status := RegisterWithBackend(s.ctx, http.DefaultClient, "http://127.0.0.1:1", "pub1")
	s.Equal(RegistrationFailed, status)
}
