package models

import "time"

// TransactionReason is the business reason for a coin mutation.
type TransactionReason string

const (
	TxReasonUnitReward        TransactionReason = "unit_reward"
	TxReasonQuizReward        TransactionReason = "quiz_reward"
	TxReasonAchievementReward TransactionReason = "achievement_reward"
	TxReasonDailyLoginBonus   TransactionReason = "daily_login_bonus"
	TxReasonShopPurchase      TransactionReason = "shop_purchase"
	TxReasonAdminGrant        TransactionReason = "admin_grant"
)

// CoinTransaction is one immutable ledger entry. Rows are append-only:
// never updated, never deleted. Replaying a user's entries in order from a
// zero balance reproduces the current CoinBalance exactly.
type CoinTransaction struct {
	ID            string            `gorm:"primaryKey;type:uuid" json:"id"`
	UserID        string            `gorm:"index;not null" json:"user_id"`
	Amount        int64             `gorm:"not null" json:"amount"` // signed: earn > 0, spend < 0
	BalanceBefore int64             `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64             `gorm:"not null" json:"balance_after"`
	Reason        TransactionReason `gorm:"type:varchar(32);not null" json:"reason"`
	Reference     string            `gorm:"type:varchar(128)" json:"reference,omitempty"` // event id, achievement id, shop item
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
}
