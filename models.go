package main

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are JSON numbers in the API contract, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Invoice lifecycle statuses. Any status may move to any other; the enum
// itself is the only constraint.
const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusUnpaid  = "unpaid"
)

func validStatus(s string) bool {
	return s == StatusPending || s == StatusPaid || s == StatusUnpaid
}

// Date is a calendar date. It accepts both date-only and RFC 3339 input
// (browser date pickers send the former, API clients often the latter) and
// always serializes date-only.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date at local midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	s = s[1 : len(s)-1]
	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.Time = t
	return nil
}

// Scan implements sql.Scanner so DATE columns scan directly into Date.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		d.Time = v
		return nil
	case string:
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return err
		}
		d.Time = t
		return nil
	case nil:
		d.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("cannot scan %T into Date", src)
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// User is a registered account. The password hash never leaves the process.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DOB          *Date     `json:"dob,omitempty"`
	Mobile       *string   `json:"mobile,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Wallet is a user's single-currency running balance container. The stored
// balance equals the opening balance plus every applied ledger delta.
type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Invoice is a billable record whose status may generate a ledger entry.
type Invoice struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	ClientName string          `json:"clientName"`
	Orders     string          `json:"orders"`
	Amount     decimal.Decimal `json:"amount"`
	Date       Date            `json:"date"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Transaction is a signed ledger entry: positive amounts are income,
// negative amounts are spending. At most one transaction references a
// given invoice at a time.
type Transaction struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"userId"`
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Date      Date            `json:"date"`
	InvoiceID *int64          `json:"-"`
	Invoice   *InvoiceRef     `json:"invoiceId,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// InvoiceRef is the resolved shape of a transaction's invoice link.
type InvoiceRef struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// Session is an opaque login token with an expiry.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

// Aggregates are derived fresh from the transaction set on every read and
// are independent of any stored wallet balance.
type Aggregates struct {
	TotalIncome   decimal.Decimal `json:"totalIncome"`
	TotalSpending decimal.Decimal `json:"totalSpending"`
	TotalBalance  decimal.Decimal `json:"totalBalance"`
}

// ChartPoint is one calendar-day bucket of the dashboard chart.
type ChartPoint struct {
	Date    string          `json:"date"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Analytics is the dashboard payload: overall aggregates plus the
// windowed daily series.
type Analytics struct {
	Summary Aggregates   `json:"summary"`
	Series  []ChartPoint `json:"series"`
}
