package commons

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	DbImplementationSqlite   = "sqlite"
	DbImplementationPostgres = "postgres"
)

// OpenDB opens the node database. An empty sqliteFile selects an in-memory
// database. The Postgres path reads the connection string from POSTGRES_URL.
func OpenDB(implementation string, sqliteFile string) (*sqlx.DB, error) {
	switch strings.ToLower(implementation) {
	case DbImplementationPostgres:
		connectionString := os.Getenv("POSTGRES_URL")
		if connectionString == "" {
			return nil, fmt.Errorf("db: POSTGRES_URL is required for the postgres implementation")
		}
		return sqlx.Connect("postgres", connectionString)
	case DbImplementationSqlite, "":
		if sqliteFile == "" {
			sqliteFile = ":memory:"
		}
		slog.Debug("db: opening sqlite", "file", sqliteFile)
		db, err := sqlx.Connect("sqlite3", sqliteFile)
		if err != nil {
			return nil, err
		}
		// sqlite has a single writer; a one-connection pool also keeps the
		// in-memory database shared between callers.
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("db: unknown implementation %q", implementation)
	}
}

type DbFactory struct {
	TempDir string
}

func NewDbFactory() *DbFactory {
	tempDir, err := os.MkdirTemp("", "metamesh-test-*")
	if err != nil {
		slog.Error("Error creating temp dir", "err", err)
		panic(err)
	}
	return &DbFactory{
		TempDir: tempDir,
	}
}

func (d *DbFactory) CreateDb(sqliteFileName string) *sqlx.DB {
	sqlitePath := filepath.Join(d.TempDir, sqliteFileName)
	slog.Info("Creating db", "sqlitePath", sqlitePath)
	db := sqlx.MustConnect("sqlite3", sqlitePath)
	db.SetMaxOpenConns(1)
	return db
}

func (d *DbFactory) Cleanup() {
	if d.TempDir != "" {
		err := os.RemoveAll(d.TempDir)
		if err != nil {
			slog.Error("Error removing temp dir", "err", err)
		}
	}
}
