package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// computeAggregates derives income, spending and balance from a transaction
// set. Positive amounts count as income, negative amounts as spending (by
// absolute value). The result is independent of any stored wallet balance.
func computeAggregates(txs []Transaction) Aggregates {
	income := decimal.Zero
	spending := decimal.Zero
	for _, t := range txs {
		if t.Amount.IsPositive() {
			income = income.Add(t.Amount)
		} else if t.Amount.IsNegative() {
			spending = spending.Add(t.Amount.Abs())
		}
	}
	return Aggregates{
		TotalIncome:   income,
		TotalSpending: spending,
		TotalBalance:  income.Sub(spending),
	}
}

// recordTransaction inserts a ledger entry and applies its signed amount to
// the owner's wallet as one atomic unit.
func recordTransaction(ctx context.Context, s Store, t Transaction) (Transaction, error) {
	var created Transaction
	err := s.WithTx(ctx, func(tx Store) error {
		if err := tx.ApplyToWallet(ctx, t.UserID, t.Amount); err != nil {
			return fmt.Errorf("apply transaction to wallet: %w", err)
		}
		var err error
		created, err = tx.CreateTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	return created, err
}

// removeTransaction deletes a ledger entry and reverts its amount from the
// wallet, keeping balance == opening + sum(entries).
func removeTransaction(ctx context.Context, s Store, userID, id int64) error {
	return s.WithTx(ctx, func(tx Store) error {
		t, err := tx.GetTransaction(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, userID, id); err != nil {
			return err
		}
		if err := tx.ApplyToWallet(ctx, userID, t.Amount.Neg()); err != nil {
			return fmt.Errorf("revert transaction from wallet: %w", err)
		}
		return nil
	})
}

// syncInvoiceTransaction reconciles the ledger with an invoice's status.
//
// Moving to "paid" creates the credit entry and applies the amount to the
// wallet, unless an entry for this invoice already exists (a re-mark or a
// concurrent retry must not double-credit; an amount change while paid
// reprices both the entry and the wallet). Moving anywhere else deletes
// the entry, if any, and debits the amount back. Runs inside the caller's
// transaction.
func syncInvoiceTransaction(ctx context.Context, tx Store, inv Invoice) error {
	existing, err := tx.FindTransactionByInvoice(ctx, inv.UserID, inv.ID)
	switch {
	case err == nil && inv.Status == StatusPaid:
		// Already credited; a re-mark is a no-op, an amount change moves
		// the entry and the wallet by the difference.
		if existing.Amount.Equal(inv.Amount) {
			return nil
		}
		delta := inv.Amount.Sub(existing.Amount)
		if err := tx.ApplyToWallet(ctx, inv.UserID, delta); err != nil {
			return fmt.Errorf("adjust wallet for repriced invoice: %w", err)
		}
		existing.Amount = inv.Amount
		if _, err := tx.UpdateTransaction(ctx, existing); err != nil {
			return fmt.Errorf("reprice invoice transaction: %w", err)
		}
		return nil
	case err == nil:
		if err := tx.DeleteTransaction(ctx, inv.UserID, existing.ID); err != nil {
			return fmt.Errorf("delete invoice transaction: %w", err)
		}
		if err := tx.ApplyToWallet(ctx, inv.UserID, existing.Amount.Neg()); err != nil {
			return fmt.Errorf("debit wallet for unpaid invoice: %w", err)
		}
		return nil
	case err == ErrNotFound && inv.Status == StatusPaid:
		if err := tx.ApplyToWallet(ctx, inv.UserID, inv.Amount); err != nil {
			return fmt.Errorf("credit wallet for paid invoice: %w", err)
		}
		id := inv.ID
		_, err := tx.CreateTransaction(ctx, Transaction{
			UserID:    inv.UserID,
			Name:      inv.ClientName,
			Type:      "credit",
			Amount:    inv.Amount,
			Date:      inv.Date,
			InvoiceID: &id,
		})
		if err != nil {
			return fmt.Errorf("create invoice transaction: %w", err)
		}
		return nil
	case err == ErrNotFound:
		return nil
	default:
		return fmt.Errorf("find invoice transaction: %w", err)
	}
}
