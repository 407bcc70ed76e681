package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/propbill/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GenerateRequest struct {
	OrgID      snowflake.ID
	Month      time.Time
	PropertyID snowflake.ID
	// GeneratedBy is recorded in the invoice provenance ("api", "scheduler", "cli").
	GeneratedBy string
}

type GenerateResult struct {
	Invoice Invoice `json:"invoice"`
	Created bool    `json:"was_newly_created"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	OrgID      snowflake.ID
	PropertyID *snowflake.ID
	UserID     *snowflake.ID
	Status     *InvoiceStatus
	MonthFrom  *time.Time
	MonthTo    *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type ReapplyResult struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
}

type Service interface {
	// GenerateOrFetch returns the invoice for (org, month, property), creating it
	// at most once. Created reports whether this call inserted the row.
	GenerateOrFetch(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	SetStatus(ctx context.Context, orgID, id snowflake.ID, status InvoiceStatus) (*Invoice, error)
	// Delete removes the invoice and its payments.
	Delete(ctx context.Context, orgID, id snowflake.ID) error
	MarkSent(ctx context.Context, orgID, id snowflake.ID, sentAt time.Time) error
	// ReapplyFee re-prices existing invoices with the plan effective at each bill month.
	ReapplyFee(ctx context.Context, orgID snowflake.ID, userID *snowflake.ID) (ReapplyResult, error)
	RenderPDF(ctx context.Context, orgID, id snowflake.ID) ([]byte, error)
	// NotifyCreated emails the org's billing contact and records sent_at.
	NotifyCreated(ctx context.Context, invoice Invoice) error
}

type ListFilter struct {
	OrgID      snowflake.ID
	PropertyID *snowflake.ID
	UserID     *snowflake.ID
	Status     *InvoiceStatus
	MonthFrom  *time.Time
	MonthTo    *time.Time
	// BeforeID pages backwards through ids when non-zero.
	BeforeID snowflake.ID
	Limit    int
}

type FeeUpdate struct {
	FeePercent      int
	FeeMinor        int64
	NetRevenueMinor int64
	AmountDueMinor  int64
	Metadata        datatypes.JSONMap
	UpdatedAt       time.Time
}

type Repository interface {
	FindByKey(ctx context.Context, db *gorm.DB, orgID snowflake.ID, month time.Time, propertyID snowflake.ID) (*Invoice, error)
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Invoice, error)
	// InsertIfAbsent inserts unless the (org, month, property) key exists and
	// reports whether a row was written.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, invoice *Invoice) (bool, error)
	// NextSequence atomically advances and returns the org's invoice counter.
	NextSequence(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateFee(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, update FeeUpdate) error
	MarkSent(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, sentAt time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (int64, error)
}

var (
	ErrInvalidOrganization     = errors.New("invalid_organization")
	ErrInvalidMonth            = errors.New("invalid_month")
	ErrInvalidInvoiceID        = errors.New("invalid_invoice_id")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidStatusTransition = errors.New("invalid_status_transition")
	ErrInvalidPageToken        = errors.New("invalid_page_token")
	ErrInvoiceNotFound         = errors.New("invoice_not_found")
	ErrRendererNotConfigured   = errors.New("renderer_not_configured")
)
