package model

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/metamesh-labs/metamesh-node/internal/commons"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/suite"
)

type WalletRepositorySuite struct {
	suite.Suite
	walletRepository *WalletRepository
	ctx              context.Context
}

func (s *WalletRepositorySuite) SetupTest() {
	commons.ConfigureLog(slog.LevelDebug)
	db := sqlx.MustConnect("sqlite3", ":memory:")
	db.SetMaxOpenConns(1)
	s.walletRepository = &WalletRepository{
		Db: db,
	}
	err := s.walletRepository.CreateTables()
	s.NoError(err)
	s.ctx = context.Background()
}

func TestWalletRepositorySuite(t *testing.T) {
	suite.Run(t, new(WalletRepositorySuite))
}

func (s *WalletRepositorySuite) TestRegisterNewWallet() {
	wallet, err := s.walletRepository.Register(s.ctx, "pubkey-1", time.Time{})
	s.NoError(err)
	s.Equal("pubkey-1", wallet.PublicKey)
	s.False(wallet.CreatedAt.IsZero())
	s.False(wallet.LastSeen.IsZero())
}

func (s *WalletRepositorySuite) TestRegisterKeepsCreatedAt() {
	createdAt := time.Now().Add(-24 * time.Hour).UTC()
	first, err := s.walletRepository.Register(s.ctx, "pubkey-1", createdAt)
	s.NoError(err)

	second, err := s.walletRepository.Register(s.ctx, "pubkey-1", time.Time{})
	s.NoError(err)
	s.Equal(first.CreatedAt.UnixMilli(), second.CreatedAt.UnixMilli())
	s.GreaterOrEqual(second.LastSeen.UnixMilli(), first.LastSeen.UnixMilli())
}

func (s *WalletRepositorySuite) TestFindUnknownWallet() {
	wallet, err := s.walletRepository.Find(s.ctx, "no-such-key")
	s.NoError(err)
	s.Nil(wallet)
}
