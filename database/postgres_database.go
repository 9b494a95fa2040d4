package database

import (
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	_ "github.com/lib/pq"
)

// SetupPostgresDatabase connects to PostgreSQL and runs migrations
func SetupPostgresDatabase(connString string) (*SQLDB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s := &SQLDB{db: db, dialect: "postgres"}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// EphemeralPostgresDB is a throwaway PostgreSQL server for development mode
type EphemeralPostgresDB struct {
	*SQLDB
	server  *embeddedpostgres.EmbeddedPostgres
	runtime string
}

// SetupEphemeralPostgresDatabase starts an embedded PostgreSQL on a free port.
// All data is removed when Close is called
func SetupEphemeralPostgresDatabase() (*EphemeralPostgresDB, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to find free port: %w", err)
	}
	runtimePath, err := os.MkdirTemp("", "storefront-pg-")
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime dir: %w", err)
	}
	server := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		Port(uint32(port)).
		Database("storefront").
		RuntimePath(runtimePath).
		DataPath(filepath.Join(runtimePath, "data")))
	Logger.Info("Starting embedded PostgreSQL", "port", port, "runtime", runtimePath)
	if err := server.Start(); err != nil {
		os.RemoveAll(runtimePath)
		return nil, fmt.Errorf("failed to start embedded postgres: %w", err)
	}

	connString := fmt.Sprintf("host=localhost port=%d user=postgres password=postgres dbname=storefront sslmode=disable", port)
	sqlDB, err := SetupPostgresDatabase(connString)
	if err != nil {
		server.Stop()
		os.RemoveAll(runtimePath)
		return nil, err
	}
	return &EphemeralPostgresDB{SQLDB: sqlDB, server: server, runtime: runtimePath}, nil
}

// Close closes the connection, stops the server and removes its files
func (e *EphemeralPostgresDB) Close() error {
	if err := e.SQLDB.Close(); err != nil {
		Logger.Warn("Error closing ephemeral database connection", "error", err)
	}
	err := e.server.Stop()
	if rmErr := os.RemoveAll(e.runtime); rmErr != nil {
		Logger.Warn("Unable to remove ephemeral database files", "path", e.runtime, "error", rmErr)
	}
	return err
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
