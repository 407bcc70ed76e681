package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Property is a rentable unit whose ledger and bookings feed the KPIs.
type Property struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	OwnerUserID snowflake.ID `gorm:"not null;default:0;index" json:"owner_user_id"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Property) TableName() string { return "properties" }

type CreatePropertyRequest struct {
	OrgID       snowflake.ID
	OwnerUserID snowflake.ID
	Name        string
}

type Service interface {
	Create(ctx context.Context, req CreatePropertyRequest) (*Property, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*Property, error)
	List(ctx context.Context, orgID snowflake.ID) ([]Property, error)
	Count(ctx context.Context, orgID snowflake.ID) (int64, error)
	// Delete removes the property together with its ledger entries and bookings.
	Delete(ctx context.Context, orgID, id snowflake.ID) error
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidProperty     = errors.New("invalid_property")
	ErrPropertyNotFound    = errors.New("property_not_found")
)
