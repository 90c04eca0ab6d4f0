package main

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound covers both absent entities and entities owned by a
	// different user; callers must not be able to tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registering an email that is
	// already taken.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrInvoiceLinked is returned when a write would give an invoice a
	// second ledger entry.
	ErrInvoiceLinked = errors.New("invoice already has a linked transaction")
)

// Store is the persistence boundary. Every entity read and write is scoped
// by the owning user id. The Postgres implementation backs the server; the
// in-memory implementation backs the tests.
type Store interface {
	CreateUser(ctx context.Context, name, email, passwordHash string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error

	CreateWallet(ctx context.Context, w Wallet) (Wallet, error)
	ListWallets(ctx context.Context, userID int64) ([]Wallet, error)
	GetWallet(ctx context.Context, userID, id int64) (Wallet, error)
	UpdateWallet(ctx context.Context, w Wallet) (Wallet, error)
	DeleteWallet(ctx context.Context, userID, id int64) error

	// ApplyToWallet adds delta to the user's first wallet, the
	// authoritative reconciliation target. ErrNotFound if the user has
	// no wallet.
	ApplyToWallet(ctx context.Context, userID int64, delta decimal.Decimal) error

	CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	ListInvoices(ctx context.Context, userID int64) ([]Invoice, error)
	GetInvoice(ctx context.Context, userID, id int64) (Invoice, error)
	UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	DeleteInvoice(ctx context.Context, userID, id int64) error

	CreateTransaction(ctx context.Context, t Transaction) (Transaction, error)
	ListTransactions(ctx context.Context, userID int64) ([]Transaction, error)
	GetTransaction(ctx context.Context, userID, id int64) (Transaction, error)
	UpdateTransaction(ctx context.Context, t Transaction) (Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id int64) error
	FindTransactionByInvoice(ctx context.Context, userID, invoiceID int64) (Transaction, error)

	// WithTx runs fn against a store whose writes commit or roll back as
	// one unit. Multi-entity mutations (ledger entry + wallet balance)
	// must go through here.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// store is the process-wide handle, set once at startup (or by tests).
var store Store

// sessionDuration is how long a login lasts.
const sessionDuration = 30 * 24 * time.Hour
