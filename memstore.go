package main

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory Store used by the tests. WithTx runs the
// function against the store directly: there is no rollback isolation,
// which the tests do not rely on.
type memStore struct {
	mu sync.Mutex

	nextID       int64
	users        map[int64]*User
	sessions     map[string]Session
	wallets      map[int64]*Wallet
	invoices     map[int64]*Invoice
	transactions map[int64]*Transaction
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int64]*User),
		sessions:     make(map[string]Session),
		wallets:      make(map[int64]*Wallet),
		invoices:     make(map[int64]*Invoice),
		transactions: make(map[int64]*Transaction),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}

func (s *memStore) CreateUser(ctx context.Context, name, email, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return User{}, ErrDuplicateEmail
		}
	}
	u := User{ID: s.id(), Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	s.users[u.ID] = &u
	return u, nil
}

func (s *memStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return *u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *memStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return *u, nil
	}
	return User{}, ErrNotFound
}

func (s *memStore) UpdateUser(ctx context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[u.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	for _, other := range s.users {
		if other.ID != u.ID && other.Email == u.Email {
			return User{}, ErrDuplicateEmail
		}
	}
	u.CreatedAt = existing.CreatedAt
	s.users[u.ID] = &u
	return u, nil
}

func (s *memStore) DeleteUser(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	for token, sess := range s.sessions {
		if sess.UserID == id {
			delete(s.sessions, token)
		}
	}
	for wid, w := range s.wallets {
		if w.UserID == id {
			delete(s.wallets, wid)
		}
	}
	for iid, inv := range s.invoices {
		if inv.UserID == id {
			delete(s.invoices, iid)
		}
	}
	for tid, t := range s.transactions {
		if t.UserID == id {
			delete(s.transactions, tid)
		}
	}
	return nil
}

func (s *memStore) CreateSession(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *memStore) GetSession(ctx context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	return Session{}, ErrNotFound
}

func (s *memStore) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *memStore) CreateWallet(ctx context.Context, w Wallet) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.ID = s.id()
	w.CreatedAt = time.Now()
	s.wallets[w.ID] = &w
	return w, nil
}

func (s *memStore) ListWallets(ctx context.Context, userID int64) ([]Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wallets := make([]Wallet, 0)
	for _, w := range s.wallets {
		if w.UserID == userID {
			wallets = append(wallets, *w)
		}
	}
	sort.Slice(wallets, func(i, j int) bool { return wallets[i].ID < wallets[j].ID })
	return wallets, nil
}

func (s *memStore) GetWallet(ctx context.Context, userID, id int64) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[id]; ok && w.UserID == userID {
		return *w, nil
	}
	return Wallet{}, ErrNotFound
}

func (s *memStore) UpdateWallet(ctx context.Context, w Wallet) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.wallets[w.ID]
	if !ok || existing.UserID != w.UserID {
		return Wallet{}, ErrNotFound
	}
	existing.Balance = w.Balance
	existing.Currency = w.Currency
	return *existing, nil
}

func (s *memStore) DeleteWallet(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[id]; ok && w.UserID == userID {
		delete(s.wallets, id)
		return nil
	}
	return ErrNotFound
}

func (s *memStore) ApplyToWallet(ctx context.Context, userID int64, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first *Wallet
	for _, w := range s.wallets {
		if w.UserID == userID && (first == nil || w.ID < first.ID) {
			first = w
		}
	}
	if first == nil {
		return ErrNotFound
	}
	first.Balance = first.Balance.Add(delta)
	return nil
}

func (s *memStore) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.ID = s.id()
	inv.CreatedAt = time.Now()
	s.invoices[inv.ID] = &inv
	return inv, nil
}

func (s *memStore) ListInvoices(ctx context.Context, userID int64) ([]Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	invoices := make([]Invoice, 0)
	for _, inv := range s.invoices {
		if inv.UserID == userID {
			invoices = append(invoices, *inv)
		}
	}
	sort.Slice(invoices, func(i, j int) bool {
		if !invoices[i].Date.Equal(invoices[j].Date.Time) {
			return invoices[i].Date.After(invoices[j].Date.Time)
		}
		return invoices[i].ID > invoices[j].ID
	})
	return invoices, nil
}

func (s *memStore) GetInvoice(ctx context.Context, userID, id int64) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.invoices[id]; ok && inv.UserID == userID {
		return *inv, nil
	}
	return Invoice{}, ErrNotFound
}

func (s *memStore) UpdateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.invoices[inv.ID]
	if !ok || existing.UserID != inv.UserID {
		return Invoice{}, ErrNotFound
	}
	inv.CreatedAt = existing.CreatedAt
	s.invoices[inv.ID] = &inv
	return inv, nil
}

func (s *memStore) DeleteInvoice(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok || inv.UserID != userID {
		return ErrNotFound
	}
	delete(s.invoices, id)
	// Detach, keep the ledger entry.
	for _, t := range s.transactions {
		if t.InvoiceID != nil && *t.InvoiceID == id {
			t.InvoiceID = nil
		}
	}
	return nil
}

// resolveInvoice fills the invoiceId reference shape on reads. Callers hold
// the lock.
func (s *memStore) resolveInvoice(t Transaction) Transaction {
	t.Invoice = nil
	if t.InvoiceID != nil {
		if inv, ok := s.invoices[*t.InvoiceID]; ok {
			t.Invoice = &InvoiceRef{ID: inv.ID, Status: inv.Status}
		}
	}
	return t
}

func (s *memStore) CreateTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	t.CreatedAt = time.Now()
	s.transactions[t.ID] = &t
	return s.resolveInvoice(t), nil
}

func (s *memStore) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	transactions := make([]Transaction, 0)
	for _, t := range s.transactions {
		if t.UserID == userID {
			transactions = append(transactions, s.resolveInvoice(*t))
		}
	}
	sort.Slice(transactions, func(i, j int) bool {
		if !transactions[i].Date.Equal(transactions[j].Date.Time) {
			return transactions[i].Date.After(transactions[j].Date.Time)
		}
		return transactions[i].ID > transactions[j].ID
	})
	return transactions, nil
}

func (s *memStore) GetTransaction(ctx context.Context, userID, id int64) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transactions[id]; ok && t.UserID == userID {
		return s.resolveInvoice(*t), nil
	}
	return Transaction{}, ErrNotFound
}

func (s *memStore) UpdateTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return Transaction{}, ErrNotFound
	}
	existing.Name = t.Name
	existing.Type = t.Type
	existing.Amount = t.Amount
	existing.Date = t.Date
	return s.resolveInvoice(*existing), nil
}

func (s *memStore) DeleteTransaction(ctx context.Context, userID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transactions[id]; ok && t.UserID == userID {
		delete(s.transactions, id)
		return nil
	}
	return ErrNotFound
}

func (s *memStore) FindTransactionByInvoice(ctx context.Context, userID, invoiceID int64) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.UserID == userID && t.InvoiceID != nil && *t.InvoiceID == invoiceID {
			return s.resolveInvoice(*t), nil
		}
	}
	return Transaction{}, ErrNotFound
}
