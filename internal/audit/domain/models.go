package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

// TargetType names the billing record an audit entry is about.
type TargetType string

const (
	TargetInvoice       TargetType = "invoice"
	TargetPayment       TargetType = "payment"
	TargetFeePlan       TargetType = "fee_plan"
	TargetOrganization  TargetType = "organization"
	TargetAuthorization TargetType = "authorization"
)

func (t TargetType) Valid() bool {
	switch t {
	case TargetInvoice, TargetPayment, TargetFeePlan, TargetOrganization, TargetAuthorization:
		return true
	}
	return false
}

// AuditLog records who changed billing state and how. PropertyID and
// InvoiceID are set when the change touches a property's billing, so a
// payment entry is found both as a payment and under its invoice.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      *snowflake.ID     `gorm:"index" json:"org_id,omitempty"`
	PropertyID *snowflake.ID     `gorm:"index" json:"property_id,omitempty"`
	InvoiceID  *snowflake.ID     `gorm:"index" json:"invoice_id,omitempty"`
	ActorType  string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID    *string           `gorm:"type:text" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType TargetType        `gorm:"type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"type:text" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry is one event to record. Zero ids are stored as NULL; an empty
// actor falls back to the actor on the context, then to system.
type Entry struct {
	OrgID      snowflake.ID
	PropertyID snowflake.ID
	InvoiceID  snowflake.ID
	ActorType  string
	ActorID    *string
	Action     string
	TargetType TargetType
	TargetID   string
	Metadata   map[string]any
}

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	OrgID      snowflake.ID
	PropertyID snowflake.ID
	InvoiceID  snowflake.ID
	Action     string
	TargetType TargetType
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
