package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pgStore is the PostgreSQL Store. A tx-scoped copy carries a nil db.
type pgStore struct {
	db *sql.DB
	q  querier
}

func newPGStore(db *sql.DB) *pgStore {
	return &pgStore{db: db, q: db}
}

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		// Already transaction-scoped.
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&pgStore{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// ---- users ----

const userColumns = `id, name, email, password_hash, dob, mobile, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var dob sql.NullTime
	var mobile sql.NullString
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &dob, &mobile, &u.CreatedAt); err != nil {
		return User{}, err
	}
	if dob.Valid {
		u.DOB = &Date{Time: dob.Time}
	}
	if mobile.Valid {
		u.Mobile = &mobile.String
	}
	return u, nil
}

func (s *pgStore) CreateUser(ctx context.Context, name, email, passwordHash string) (User, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		name, email, passwordHash,
	)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *pgStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return User{}, notFoundOr(err, "select user by email")
	}
	return u, nil
}

func (s *pgStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return User{}, notFoundOr(err, "select user")
	}
	return u, nil
}

func (s *pgStore) UpdateUser(ctx context.Context, u User) (User, error) {
	var dob any
	if u.DOB != nil {
		dob = u.DOB.Time
	}
	var mobile any
	if u.Mobile != nil {
		mobile = *u.Mobile
	}
	row := s.q.QueryRowContext(ctx, `
		UPDATE users
		SET name = $1, email = $2, password_hash = $3, dob = $4, mobile = $5
		WHERE id = $6
		RETURNING `+userColumns,
		u.Name, u.Email, u.PasswordHash, dob, mobile, u.ID,
	)
	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicateEmail
		}
		return User{}, notFoundOr(err, "update user")
	}
	return updated, nil
}

func (s *pgStore) DeleteUser(ctx context.Context, id int64) error {
	// Wallets, invoices, transactions and sessions cascade.
	res, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- sessions ----

func (s *pgStore) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		sess.Token, sess.UserID, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *pgStore) GetSession(ctx context.Context, token string) (Session, error) {
	var sess Session
	err := s.q.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = $1`, token,
	).Scan(&sess.Token, &sess.UserID, &sess.ExpiresAt)
	if err != nil {
		return Session{}, notFoundOr(err, "select session")
	}
	return sess, nil
}

func (s *pgStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ---- wallets ----

const walletColumns = `id, user_id, balance, currency, created_at`

func scanWallet(row rowScanner) (Wallet, error) {
	var w Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt)
	return w, err
}

func (s *pgStore) CreateWallet(ctx context.Context, w Wallet) (Wallet, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, balance, currency)
		VALUES ($1, $2, $3)
		RETURNING `+walletColumns,
		w.UserID, w.Balance, w.Currency,
	)
	created, err := scanWallet(row)
	if err != nil {
		return Wallet{}, fmt.Errorf("insert wallet: %w", err)
	}
	return created, nil
}

func (s *pgStore) ListWallets(ctx context.Context, userID int64) ([]Wallet, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("select wallets: %w", err)
	}
	defer rows.Close()

	// ensure empty array ([]) instead of null when no rows
	wallets := make([]Wallet, 0)
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

func (s *pgStore) GetWallet(ctx context.Context, userID, id int64) (Wallet, error) {
	w, err := scanWallet(s.q.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return Wallet{}, notFoundOr(err, "select wallet")
	}
	return w, nil
}

func (s *pgStore) UpdateWallet(ctx context.Context, w Wallet) (Wallet, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE wallets SET balance = $1, currency = $2
		WHERE id = $3 AND user_id = $4
		RETURNING `+walletColumns,
		w.Balance, w.Currency, w.ID, w.UserID,
	)
	updated, err := scanWallet(row)
	if err != nil {
		return Wallet{}, notFoundOr(err, "update wallet")
	}
	return updated, nil
}

func (s *pgStore) DeleteWallet(ctx context.Context, userID, id int64) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM wallets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) ApplyToWallet(ctx context.Context, userID int64, delta decimal.Decimal) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE wallets SET balance = balance + $1
		WHERE id = (SELECT id FROM wallets WHERE user_id = $2 ORDER BY id LIMIT 1)`,
		delta, userID,
	)
	if err != nil {
		return fmt.Errorf("apply to wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- invoices ----

const invoiceColumns = `id, user_id, client_name, orders, amount, date, status, created_at`

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.UserID, &inv.ClientName, &inv.Orders,
		&inv.Amount, &inv.Date, &inv.Status, &inv.CreatedAt)
	return inv, err
}

func (s *pgStore) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	row := s.q.QueryRowContext(ctx, `
		INSERT INTO invoices (user_id, client_name, orders, amount, date, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+invoiceColumns,
		inv.UserID, inv.ClientName, inv.Orders, inv.Amount, inv.Date, inv.Status,
	)
	created, err := scanInvoice(row)
	if err != nil {
		return Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	return created, nil
}

func (s *pgStore) ListInvoices(ctx context.Context, userID int64) ([]Invoice, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 ORDER BY date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (s *pgStore) GetInvoice(ctx context.Context, userID, id int64) (Invoice, error) {
	inv, err := scanInvoice(s.q.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return Invoice{}, notFoundOr(err, "select invoice")
	}
	return inv, nil
}

func (s *pgStore) UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	row := s.q.QueryRowContext(ctx, `
		UPDATE invoices
		SET client_name = $1, orders = $2, amount = $3, date = $4, status = $5
		WHERE id = $6 AND user_id = $7
		RETURNING `+invoiceColumns,
		inv.ClientName, inv.Orders, inv.Amount, inv.Date, inv.Status, inv.ID, inv.UserID,
	)
	updated, err := scanInvoice(row)
	if err != nil {
		return Invoice{}, notFoundOr(err, "update invoice")
	}
	return updated, nil
}

func (s *pgStore) DeleteInvoice(ctx context.Context, userID, id int64) error {
	// A linked transaction stays in the ledger, its invoice_id is nulled
	// by the FK.
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM invoices WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- transactions ----

const txColumns = `t.id, t.user_id, t.name, t.type, t.amount, t.date, t.invoice_id, t.created_at, i.status`

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var invoiceID sql.NullInt64
	var invoiceStatus sql.NullString
	err := row.Scan(&t.ID, &t.UserID, &t.Name, &t.Type, &t.Amount, &t.Date,
		&invoiceID, &t.CreatedAt, &invoiceStatus)
	if err != nil {
		return Transaction{}, err
	}
	if invoiceID.Valid {
		t.InvoiceID = &invoiceID.Int64
		if invoiceStatus.Valid {
			t.Invoice = &InvoiceRef{ID: invoiceID.Int64, Status: invoiceStatus.String}
		}
	}
	return t, nil
}

func (s *pgStore) CreateTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO transactions (user_id, name, type, amount, date, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		t.UserID, t.Name, t.Type, t.Amount, t.Date, t.InvoiceID,
	).Scan(&id)
	if err != nil {
		// idx_transactions_invoice: at most one entry per invoice.
		if isUniqueViolation(err) {
			return Transaction{}, ErrInvoiceLinked
		}
		return Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return s.GetTransaction(ctx, t.UserID, id)
}

func (s *pgStore) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions t
		LEFT JOIN invoices i ON t.invoice_id = i.id
		WHERE t.user_id = $1
		ORDER BY t.date DESC, t.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (s *pgStore) GetTransaction(ctx context.Context, userID, id int64) (Transaction, error) {
	t, err := scanTransaction(s.q.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions t
		LEFT JOIN invoices i ON t.invoice_id = i.id
		WHERE t.id = $1 AND t.user_id = $2`, id, userID))
	if err != nil {
		return Transaction{}, notFoundOr(err, "select transaction")
	}
	return t, nil
}

func (s *pgStore) UpdateTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	res, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET name = $1, type = $2, amount = $3, date = $4
		WHERE id = $5 AND user_id = $6`,
		t.Name, t.Type, t.Amount, t.Date, t.ID, t.UserID,
	)
	if err != nil {
		return Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Transaction{}, ErrNotFound
	}
	return s.GetTransaction(ctx, t.UserID, t.ID)
}

func (s *pgStore) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *pgStore) FindTransactionByInvoice(ctx context.Context, userID, invoiceID int64) (Transaction, error) {
	t, err := scanTransaction(s.q.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions t
		LEFT JOIN invoices i ON t.invoice_id = i.id
		WHERE t.invoice_id = $1 AND t.user_id = $2`, invoiceID, userID))
	if err != nil {
		return Transaction{}, notFoundOr(err, "select transaction by invoice")
	}
	return t, nil
}
