package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB hands out one *sql.DB per DSN and replaces it when the DSN changes.
type DB struct {
	mu  sync.Mutex
	dsn string
	db  *sql.DB
}

func NewDB() *DB { return &DB{} }

// Get returns the handle for dsn. It does not ping; callers see connection
// errors on first use.
func (p *DB) Get(dsn string) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil && p.dsn == dsn {
		return p.db, nil
	}
	if p.db != nil {
		_ = p.db.Close()
		p.db = nil
		p.dsn = ""
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Small, low-throughput control plane table.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	p.db = db
	p.dsn = dsn
	return p.db, nil
}

func (p *DB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	p.dsn = ""
	return err
}

// VerifySchema checks that the tokens table is reachable and has the
// expected columns.
func VerifySchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit, scope FROM tokens LIMIT 0`)
	if err != nil {
		return fmt.Errorf("verify tokens schema: %w", err)
	}
	return rows.Close()
}
