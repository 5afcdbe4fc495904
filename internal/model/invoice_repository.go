package model

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

type InvoiceRepository struct {
	Db *sqlx.DB
}

func (r *InvoiceRepository) CreateTables() error {
	schema := `CREATE TABLE IF NOT EXISTS invoices (
		id				text NOT NULL PRIMARY KEY,
		metadata_uri	text,
		metadata		text,
		status			text,
		tx_id			text);`
	_, err := r.Db.Exec(schema)
	if err == nil {
		slog.Debug("Invoices table created")
	} else {
		slog.Error("Create table error", "error", err)
	}
	return err
}

// Save upserts the invoice record.
func (r *InvoiceRepository) Save(ctx context.Context, invoice *InvoiceRecord) (*InvoiceRecord, error) {
	metadata, err := json.Marshal(invoice.Metadata)
	if err != nil {
		return nil, err
	}
	insertSql := r.Db.Rebind(`INSERT INTO invoices (
		id,
		metadata_uri,
		metadata,
		status,
		tx_id
	) VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		metadata_uri = excluded.metadata_uri,
		metadata = excluded.metadata,
		status = excluded.status,
		tx_id = excluded.tx_id;`)
	_, err = r.Db.ExecContext(
		ctx,
		insertSql,
		invoice.ID,
		invoice.MetadataURI,
		string(metadata),
		invoice.Status,
		invoice.TxID,
	)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *InvoiceRepository) Get(ctx context.Context, id string) (*InvoiceRecord, error) {
	query := r.Db.Rebind(`SELECT
		id,
		metadata_uri,
		metadata,
		status,
		tx_id FROM invoices WHERE id = ?`)
	res, err := r.Db.QueryxContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	if res.Next() {
		return parseInvoice(res)
	}
	return nil, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
}

// GetAll returns a snapshot of the whole registry keyed by invoice id.
func (r *InvoiceRepository) GetAll(ctx context.Context) (map[string]*InvoiceRecord, error) {
	query := `SELECT
		id,
		metadata_uri,
		metadata,
		status,
		tx_id FROM invoices`
	res, err := r.Db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	invoices := map[string]*InvoiceRecord{}
	for res.Next() {
		invoice, err := parseInvoice(res)
		if err != nil {
			return nil, err
		}
		invoices[invoice.ID] = invoice
	}
	return invoices, nil
}

// MarkIssued transitions the invoice from pending to issued. The transition
// is a single compare-and-set statement so that at most one of two
// concurrent callers wins. Re-marking with the same txId is a no-op success;
// re-marking with a different txId fails with ErrAlreadyIssued and leaves
// the stored txId untouched. MarkIssued never creates a record.
func (r *InvoiceRepository) MarkIssued(ctx context.Context, id string, txId string) (*InvoiceRecord, error) {
	if txId == "" {
		return nil, fmt.Errorf("txId is required")
	}
	updateSql := r.Db.Rebind(`UPDATE invoices
		SET status = ?, tx_id = ?
		WHERE id = ? AND status = ?`)
	res, err := r.Db.ExecContext(ctx, updateSql, InvoiceStatusIssued, txId, id, InvoiceStatusPending)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	invoice, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if affected == 1 {
		return invoice, nil
	}
	if invoice.TxID == txId {
		// idempotent retry
		return invoice, nil
	}
	return nil, fmt.Errorf("invoice %s: %w", id, ErrAlreadyIssued)
}

func parseInvoice(res *sqlx.Rows) (*InvoiceRecord, error) {
	var invoice InvoiceRecord
	var metadata string
	err := res.Scan(
		&invoice.ID,
		&invoice.MetadataURI,
		&metadata,
		&invoice.Status,
		&invoice.TxID,
	)
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal([]byte(metadata), &invoice.Metadata)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
