package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	"gorm.io/gorm"
)

type Method string

const (
	MethodBank  Method = "bank"
	MethodCard  Method = "card"
	MethodCash  Method = "cash"
	MethodOther Method = "other"
)

// ParseMethod normalizes raw into a known payment method.
func ParseMethod(raw string) (Method, bool) {
	method := Method(strings.ToLower(strings.TrimSpace(raw)))
	switch method {
	case MethodBank, MethodCard, MethodCash, MethodOther:
		return method, true
	default:
		return "", false
	}
}

// Payment is money received against exactly one invoice. Any payment settles
// the invoice; partial balances are not tracked.
type Payment struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"org_id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	AmountMinor int64        `gorm:"not null" json:"amount_minor"`
	Method      Method       `gorm:"type:varchar(16);not null" json:"method"`
	PaymentDate time.Time    `gorm:"not null" json:"payment_date"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

type ApplyRequest struct {
	OrgID       snowflake.ID
	InvoiceID   snowflake.ID
	AmountMinor int64
	Method      string
	PaymentDate *time.Time
}

type Service interface {
	ApplyPayment(ctx context.Context, req ApplyRequest) (*invoicedomain.Invoice, error)
	// RemovePayment reverts the invoice to due once no payments remain.
	RemovePayment(ctx context.Context, orgID, paymentID snowflake.ID) (*invoicedomain.Invoice, error)
	List(ctx context.Context, orgID, invoiceID snowflake.ID) ([]Payment, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Payment, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
	CountByInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) (int64, error)
	ListByInvoice(ctx context.Context, db *gorm.DB, orgID, invoiceID snowflake.ID) ([]*Payment, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidInvoice      = errors.New("invalid_invoice")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidMethod       = errors.New("invalid_method")
	ErrPaymentNotFound     = errors.New("payment_not_found")
)
