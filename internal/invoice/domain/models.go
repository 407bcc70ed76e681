// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDue  InvoiceStatus = "due"
	InvoiceStatusPaid InvoiceStatus = "paid"
	InvoiceStatusVoid InvoiceStatus = "void"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDue, InvoiceStatusPaid, InvoiceStatusVoid:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether an administrator may move an invoice from s to next.
// Payments move due invoices to paid, not this path.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	switch {
	case s == next:
		return true
	case next == InvoiceStatusVoid:
		return s == InvoiceStatusDue || s == InvoiceStatusPaid
	case s == InvoiceStatusVoid && next == InvoiceStatusDue:
		return true
	default:
		return false
	}
}

// Invoice bills the management fee of one month for an org or one of its properties.
// PropertyID and UserID are 0 when not applicable so the unique key also covers
// org-wide invoices.
type Invoice struct {
	ID                snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID             snowflake.ID      `gorm:"not null;uniqueIndex:ux_invoices_org_month_property,priority:1;uniqueIndex:ux_invoices_org_number,priority:1" json:"org_id"`
	BillMonth         time.Time         `gorm:"not null;uniqueIndex:ux_invoices_org_month_property,priority:2" json:"bill_month"`
	PropertyID        snowflake.ID      `gorm:"not null;default:0;uniqueIndex:ux_invoices_org_month_property,priority:3" json:"property_id"`
	UserID            snowflake.ID      `gorm:"not null;default:0;index" json:"user_id"`
	InvoiceNumber     string            `gorm:"type:varchar(64);not null;uniqueIndex:ux_invoices_org_number,priority:2" json:"invoice_number"`
	Status            InvoiceStatus     `gorm:"type:varchar(16);not null;default:'due'" json:"status"`
	AmountDueMinor    int64             `gorm:"not null;default:0" json:"amount_due_minor"`
	GrossRevenueMinor int64             `gorm:"not null;default:0" json:"gross_revenue_minor"`
	ExpensesMinor     int64             `gorm:"not null;default:0" json:"expenses_minor"`
	FeePercent        int               `gorm:"not null;default:0" json:"fee_percent"`
	FeeMinor          int64             `gorm:"not null;default:0" json:"fee_minor"`
	NetRevenueMinor   int64             `gorm:"not null;default:0" json:"net_revenue_minor"`
	Currency          string            `gorm:"type:varchar(3);not null" json:"currency"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	SentAt            *time.Time        `json:"sent_at,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	VoidedAt          *time.Time        `json:"voided_at,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceSequence is the per-org counter behind invoice numbers.
type InvoiceSequence struct {
	OrgID     snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"org_id"`
	LastValue int64        `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (InvoiceSequence) TableName() string { return "invoice_sequences" }
