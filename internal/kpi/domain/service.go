package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// Aggregate rolls up the month's ledger entries and completed bookings.
	Aggregate(ctx context.Context, scope Scope, month time.Time) (Aggregate, error)
	// Snapshot is Aggregate plus the fee of the plan effective at the month start.
	Snapshot(ctx context.Context, scope Scope, month time.Time) (Snapshot, error)
	// History returns org snapshots for the last months ending at the current month, oldest first.
	History(ctx context.Context, orgID snowflake.ID, months int) ([]Snapshot, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidMonth        = errors.New("invalid_month")
	ErrInvalidMonths       = errors.New("invalid_months")
)
