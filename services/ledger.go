package services

import (
	"time"

	"learning-progress-system/models"

	"github.com/google/uuid"
)

// CoinLedger applies signed coin deltas to a progression record. Every
// accepted mutation produces one immutable CoinTransaction carrying
// balance-before/after snapshots; the store persists record and entries
// atomically.
type CoinLedger struct{}

// Apply mutates the record's balance and returns the ledger entry. A spend
// that would drive the balance negative is rejected with
// ErrInsufficientBalance and leaves the record untouched. Zero deltas are
// rejected by callers before they get here; the ledger records them anyway
// if asked, keeping the audit trail complete.
func (CoinLedger) Apply(rec *models.ProgressionRecord, amount int64, reason models.TransactionReason, reference string, now time.Time) (models.CoinTransaction, error) {
	if rec.CoinBalance+amount < 0 {
		return models.CoinTransaction{}, models.ErrInsufficientBalance
	}

	entry := models.CoinTransaction{
		ID:            uuid.NewString(),
		UserID:        rec.UserID,
		Amount:        amount,
		BalanceBefore: rec.CoinBalance,
		BalanceAfter:  rec.CoinBalance + amount,
		Reason:        reason,
		Reference:     reference,
		CreatedAt:     now,
	}
	rec.CoinBalance += amount
	return entry, nil
}

// ReplayBalance folds a transaction history from zero. Audit tooling and
// tests use it to check ledger conservation against the stored balance.
func ReplayBalance(entries []models.CoinTransaction) int64 {
	var balance int64
	for _, entry := range entries {
		balance += entry.Amount
	}
	return balance
}
