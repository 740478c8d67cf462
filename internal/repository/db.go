package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// OpenDB connects to postgres, waits for it to become reachable, tunes
// the pool and runs migrations.
func OpenDB(databaseURL string, logger *slog.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 5; i++ {
		db, err = sql.Open("postgres", databaseURL)
		if err == nil {
			if err = db.Ping(); err == nil {
				break
			}
		}
		logger.Info("waiting for database", "attempt", i+1, "of", 5)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("could not reach database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := runMigrations(db); err != nil {
		return nil, err
	}
	logger.Info("database ready")
	return db, nil
}

// runMigrations creates tables and indexes idempotently.
func runMigrations(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id               UUID PRIMARY KEY,
			email            TEXT NOT NULL UNIQUE,
			username         TEXT NOT NULL UNIQUE,
			password_hash    TEXT NOT NULL,
			location         TEXT NOT NULL DEFAULT '',
			phone            TEXT NOT NULL DEFAULT '',
			tokens           INTEGER NOT NULL DEFAULT 100 CHECK (tokens >= 0),
			stars            DOUBLE PRECISION NOT NULL DEFAULT 0,
			success_rate     DOUBLE PRECISION NOT NULL DEFAULT 0,
			complaints_count INTEGER NOT NULL DEFAULT 0,
			is_banned        BOOLEAN NOT NULL DEFAULT FALSE,
			profile_image    TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS items (
			id                 UUID PRIMARY KEY,
			title              TEXT NOT NULL,
			description        TEXT NOT NULL DEFAULT '',
			category           TEXT NOT NULL,
			value              INTEGER NOT NULL CHECK (value > 0),
			token_per_day      INTEGER NOT NULL CHECK (token_per_day > 0),
			owner_id           UUID NOT NULL REFERENCES users(id),
			images             TEXT[] NOT NULL DEFAULT '{}',
			availability_start TIMESTAMPTZ NOT NULL,
			availability_end   TIMESTAMPTZ NOT NULL,
			is_available       BOOLEAN NOT NULL DEFAULT TRUE,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id                          UUID PRIMARY KEY,
			item_id                     UUID NOT NULL REFERENCES items(id),
			borrower_id                 UUID NOT NULL REFERENCES users(id),
			owner_id                    UUID NOT NULL REFERENCES users(id),
			days                        INTEGER NOT NULL,
			total_tokens                INTEGER NOT NULL,
			start_date                  TIMESTAMPTZ NOT NULL,
			end_date                    TIMESTAMPTZ NOT NULL,
			status                      TEXT NOT NULL DEFAULT 'pending',
			owner_confirmed_delivery    BOOLEAN NOT NULL DEFAULT FALSE,
			borrower_confirmed_delivery BOOLEAN NOT NULL DEFAULT FALSE,
			owner_confirmed_return      BOOLEAN NOT NULL DEFAULT FALSE,
			borrower_confirmed_return   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at                  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_borrower ON transactions(borrower_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_owner ON transactions(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_id)`,
		`CREATE TABLE IF NOT EXISTS penalties (
			id             UUID PRIMARY KEY,
			user_id        UUID NOT NULL REFERENCES users(id),
			transaction_id UUID NOT NULL REFERENCES transactions(id),
			amount         INTEGER NOT NULL CHECK (amount > 0),
			reason         TEXT NOT NULL,
			is_paid        BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_penalties_user_unpaid ON penalties(user_id, created_at) WHERE NOT is_paid`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id               UUID PRIMARY KEY,
			transaction_id   UUID NOT NULL REFERENCES transactions(id),
			reviewer_id      UUID NOT NULL REFERENCES users(id),
			reviewed_user_id UUID NOT NULL REFERENCES users(id),
			stars            INTEGER NOT NULL CHECK (stars BETWEEN 1 AND 5),
			comment          TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_reviewed_user ON reviews(reviewed_user_id)`,
		`CREATE TABLE IF NOT EXISTS complaints (
			id                 UUID PRIMARY KEY,
			complainant_id     UUID NOT NULL REFERENCES users(id),
			complained_user_id UUID NOT NULL REFERENCES users(id),
			transaction_id     UUID NOT NULL REFERENCES transactions(id),
			type               TEXT NOT NULL,
			description        TEXT NOT NULL,
			proof_images       TEXT[] NOT NULL DEFAULT '{}',
			is_valid           BOOLEAN NOT NULL DEFAULT FALSE,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id             UUID PRIMARY KEY,
			transaction_id UUID NOT NULL REFERENCES transactions(id),
			sender_id      UUID NOT NULL REFERENCES users(id),
			receiver_id    UUID NOT NULL REFERENCES users(id),
			message        TEXT NOT NULL,
			ts             TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_transaction ON messages(transaction_id, ts)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         UUID PRIMARY KEY,
			user_id    UUID NOT NULL REFERENCES users(id),
			title      TEXT NOT NULL,
			message    TEXT NOT NULL,
			kind       TEXT NOT NULL,
			related_id UUID,
			is_read    BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at DESC)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
