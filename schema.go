package main

import (
	"database/sql"
	"fmt"
)

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		dob DATE,
		mobile VARCHAR(20),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);

	CREATE TABLE IF NOT EXISTS sessions (
		token VARCHAR(64) PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wallets (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		balance DECIMAL(14,2) NOT NULL DEFAULT 0,
		currency VARCHAR(8) NOT NULL DEFAULT 'USD',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_user ON wallets(user_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_name VARCHAR(255) NOT NULL,
		orders TEXT NOT NULL,
		amount DECIMAL(14,2) NOT NULL CHECK (amount >= 0),
		date DATE NOT NULL,
		status VARCHAR(10) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_user ON invoices(user_id);

	CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(50) NOT NULL,
		amount DECIMAL(14,2) NOT NULL,
		date DATE NOT NULL,
		invoice_id BIGINT REFERENCES invoices(id) ON DELETE SET NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);

	-- At most one ledger entry per invoice; backstop for the paid-sync
	-- idempotency guard under concurrent status updates.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_invoice
		ON transactions(invoice_id) WHERE invoice_id IS NOT NULL;
`

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Seed a demo account with a wallet, invoices and transactions for
// presentations. Idempotent: only runs when the demo user is absent.
func seedDemoData(db *sql.DB) error {
	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = 'demo@example.com'`).Scan(&cnt); err != nil {
		return fmt.Errorf("checking demo user: %w", err)
	}
	if cnt > 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	hash, err := hashPassword("demo1234")
	if err != nil {
		return err
	}
	var userID int64
	if err := tx.QueryRow(
		`INSERT INTO users (name, email, password_hash) VALUES ('Demo User', 'demo@example.com', $1) RETURNING id`,
		hash,
	).Scan(&userID); err != nil {
		return fmt.Errorf("seeding demo user: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO wallets (user_id, balance, currency) VALUES ($1, 2500.00, 'USD')`, userID,
	); err != nil {
		return fmt.Errorf("seeding demo wallet: %w", err)
	}

	const demoInvoices = `
	INSERT INTO invoices (user_id, client_name, orders, amount, date, status) VALUES
	($1, 'Acme Corp', 'Landing page redesign', 850.00, CURRENT_DATE - INTERVAL '20 days', 'paid'),
	($1, 'Globex', 'Dashboard charts', 600.00, CURRENT_DATE - INTERVAL '12 days', 'paid'),
	($1, 'Initech', 'API integration', 1200.00, CURRENT_DATE - INTERVAL '5 days', 'pending'),
	($1, 'Umbrella LLC', 'Monthly retainer', 400.00, CURRENT_DATE - INTERVAL '2 days', 'unpaid')
	`
	if _, err := tx.Exec(demoInvoices, userID); err != nil {
		return fmt.Errorf("seeding demo invoices: %w", err)
	}

	// Ledger entries for the two paid invoices plus a few manual ones.
	const demoTx = `
	INSERT INTO transactions (user_id, name, type, amount, date, invoice_id) VALUES
	($1, 'Acme Corp', 'credit', 850.00, CURRENT_DATE - INTERVAL '20 days',
		(SELECT id FROM invoices WHERE user_id = $1 AND client_name = 'Acme Corp' LIMIT 1)),
	($1, 'Globex', 'credit', 600.00, CURRENT_DATE - INTERVAL '12 days',
		(SELECT id FROM invoices WHERE user_id = $1 AND client_name = 'Globex' LIMIT 1)),
	($1, 'Groceries', 'shopping', -96.72, CURRENT_DATE - INTERVAL '15 days', NULL),
	($1, 'Rent', 'housing', -1500.00, CURRENT_DATE - INTERVAL '14 days', NULL),
	($1, 'Subway pass', 'transport', -45.00, CURRENT_DATE - INTERVAL '9 days', NULL),
	($1, 'Movie night', 'leisure', -28.50, CURRENT_DATE - INTERVAL '3 days', NULL)
	`
	if _, err := tx.Exec(demoTx, userID); err != nil {
		return fmt.Errorf("seeding demo transactions: %w", err)
	}

	// Keep the running balance consistent with the seeded ledger.
	if _, err := tx.Exec(`
		UPDATE wallets SET balance = balance + (
			SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = $1
		) WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("reconciling demo wallet: %w", err)
	}

	return tx.Commit()
}
