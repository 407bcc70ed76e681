package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// LedgerEntry is one signed money movement of a property. Positive amounts are
// revenue and negative amounts are expenses. Entries are immutable.
type LedgerEntry struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index:ix_ledger_entries_scope,priority:1" json:"org_id"`
	PropertyID  snowflake.ID `gorm:"not null;index:ix_ledger_entries_scope,priority:2" json:"property_id"`
	AmountMinor int64        `gorm:"not null" json:"amount_minor"`
	EntryDate   time.Time    `gorm:"not null;index:ix_ledger_entries_scope,priority:3" json:"entry_date"`
	Description string       `gorm:"type:text;not null;default:''" json:"description"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// Totals is the sign partition of a set of ledger amounts.
type Totals struct {
	GrossMinor    int64 `json:"gross_revenue_minor"`
	ExpensesMinor int64 `json:"expenses_minor"`
}

// Net returns gross minus expenses, which equals the signed sum of the amounts.
func (t Totals) Net() int64 {
	return t.GrossMinor - t.ExpensesMinor
}

// Reduce partitions amounts by sign. Zero amounts contribute nothing.
func Reduce(amounts ...int64) Totals {
	var totals Totals
	for _, amount := range amounts {
		switch {
		case amount > 0:
			totals.GrossMinor += amount
		case amount < 0:
			totals.ExpensesMinor -= amount
		}
	}
	return totals
}
