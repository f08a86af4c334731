package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// PostgresBlobStore persists cache blobs in a single Postgres table,
// allowing the cached dataset to survive process restarts on hosts
// without durable local disk.
type PostgresBlobStore struct {
	db *sql.DB
}

// NewPostgresBlobStore connects to Postgres and ensures the blob table
// exists. Connection pool settings follow the moderate-load defaults used
// throughout the service.
func NewPostgresBlobStore(databaseURL string) (*PostgresBlobStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresBlobStore{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logrus.WithField("component", "PostgresBlobStore").Info("Connected to database successfully")
	return store, nil
}

func (s *PostgresBlobStore) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS draw_cache_blobs (
			key        VARCHAR(255) PRIMARY KEY,
			blob       BYTEA NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create draw_cache_blobs table: %w", err)
	}
	return nil
}

func (s *PostgresBlobStore) Save(key string, blob []byte) error {
	query := `
		INSERT INTO draw_cache_blobs (key, blob, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			blob = EXCLUDED.blob,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.Exec(query, key, blob); err != nil {
		return fmt.Errorf("failed to save cache blob %s: %w", key, err)
	}
	return nil
}

func (s *PostgresBlobStore) Load(key string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRow(`SELECT blob FROM draw_cache_blobs WHERE key = $1`, key).Scan(&blob)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load cache blob %s: %w", key, err)
	}
	return blob, nil
}

func (s *PostgresBlobStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM draw_cache_blobs WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete cache blob %s: %w", key, err)
	}
	return nil
}

func (s *PostgresBlobStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT key FROM draw_cache_blobs`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache blobs: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Close releases the underlying database connection pool
func (s *PostgresBlobStore) Close() error {
	logrus.Info("Database connection closed")
	return s.db.Close()
}
