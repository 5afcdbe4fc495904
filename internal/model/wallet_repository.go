package model

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

type WalletRepository struct {
	Db *sqlx.DB
}

func (r *WalletRepository) CreateTables() error {
	schema := `CREATE TABLE IF NOT EXISTS wallets (
		public_key	text NOT NULL PRIMARY KEY,
		created_at	integer,
		last_seen	integer);`
	_, err := r.Db.Exec(schema)
	if err == nil {
		slog.Debug("Wallets table created")
	} else {
		slog.Error("Create table error", "error", err)
	}
	return err
}

// Register upserts the wallet entry. A known wallet only gets its lastSeen
// refreshed; createdAt is kept from the first registration.
func (r *WalletRepository) Register(ctx context.Context, publicKey string, createdAt time.Time) (*WalletRecord, error) {
	now := time.Now().UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	insertSql := r.Db.Rebind(`INSERT INTO wallets (
		public_key,
		created_at,
		last_seen
	) VALUES (?, ?, ?)
	ON CONFLICT (public_key) DO UPDATE SET last_seen = excluded.last_seen;`)
	_, err := r.Db.ExecContext(ctx, insertSql, publicKey, createdAt.UnixMilli(), now.UnixMilli())
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, publicKey)
}

// Find returns nil when the wallet is unknown.
func (r *WalletRepository) Find(ctx context.Context, publicKey string) (*WalletRecord, error) {
	query := r.Db.Rebind(`SELECT public_key, created_at, last_seen
		FROM wallets WHERE public_key = ?`)
	res, err := r.Db.QueryxContext(ctx, query, publicKey)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	if res.Next() {
		var wallet WalletRecord
		var createdAt, lastSeen int64
		err = res.Scan(&wallet.PublicKey, &createdAt, &lastSeen)
		if err != nil {
			return nil, err
		}
		wallet.CreatedAt = time.UnixMilli(createdAt).UTC()
		wallet.LastSeen = time.UnixMilli(lastSeen).UTC()
		return &wallet, nil
	}
	return nil, nil
}
