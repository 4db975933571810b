package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"invitegen/internal/tokens"
)

const tokensSchema = `CREATE TABLE IF NOT EXISTS tokens (
	token TEXT PRIMARY KEY,
	rate_limit INTEGER NOT NULL DEFAULT 60,
	scope JSONB NOT NULL DEFAULT '{}'::jsonb
)`

// TokenRepository loads API tokens from the tokens table.
type TokenRepository struct {
	DB  *DB
	DSN string
}

func NewTokenRepository(db *DB, dsn string) *TokenRepository {
	return &TokenRepository{DB: db, DSN: dsn}
}

func (r *TokenRepository) LoadTokens(ctx context.Context) (map[string]tokens.Entry, error) {
	db, err := r.DB.Get(r.DSN)
	if err != nil {
		return nil, fmt.Errorf("open tokens db: %w", err)
	}

	if _, err := db.ExecContext(ctx, tokensSchema); err != nil {
		return nil, fmt.Errorf("ensure tokens schema failed: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT token, rate_limit, scope FROM tokens`)
	if err != nil {
		return nil, fmt.Errorf("query tokens failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]tokens.Entry)
	for rows.Next() {
		var (
			token string
			limit int
			raw   []byte
		)
		if err := rows.Scan(&token, &limit, &raw); err != nil {
			return nil, fmt.Errorf("scan token row failed: %w", err)
		}
		var scope tokens.Scope
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &scope); err != nil {
				return nil, fmt.Errorf("decode scope for token failed: %w", err)
			}
		}
		out[token] = tokens.Entry{RateLimit: limit, Scope: scope}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tokens failed: %w", err)
	}
	return out, nil
}
