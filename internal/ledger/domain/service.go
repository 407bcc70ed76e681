package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateEntryRequest struct {
	OrgID       snowflake.ID
	PropertyID  snowflake.ID
	AmountMinor int64
	EntryDate   time.Time
	Description string
}

type ListFilter struct {
	OrgID      snowflake.ID
	PropertyID snowflake.ID
	From       *time.Time
	To         *time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateEntryRequest) (*LedgerEntry, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	List(ctx context.Context, filter ListFilter) ([]LedgerEntry, error)
	// Totals aggregates the half-open window [from, to). A zero propertyID spans the org.
	Totals(ctx context.Context, orgID, propertyID snowflake.ID, from, to time.Time) (Totals, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*LedgerEntry, error)
	SumWindow(ctx context.Context, db *gorm.DB, orgID, propertyID snowflake.ID, from, to time.Time) (Totals, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidProperty     = errors.New("invalid_property")
	ErrInvalidEntryDate    = errors.New("invalid_entry_date")
	ErrInvalidTimeRange    = errors.New("invalid_time_range")
	ErrEntryNotFound       = errors.New("ledger_entry_not_found")
)
