package server

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	kpidomain "github.com/smallbiznis/propbill/internal/kpi/domain"
	"github.com/smallbiznis/propbill/internal/observability"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	propertydomain "github.com/smallbiznis/propbill/internal/property/domain"
	"github.com/smallbiznis/propbill/internal/testutil/enginetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	engine  *enginetest.Engine
	router  *gin.Engine
	adminID snowflake.ID
	org     organizationdomain.Organization
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := enginetest.New(t, enginetest.Options{})
	router := NewEngine(observability.Config{}, nil)
	NewServer(ServerParams{
		Gin:             router,
		Log:             zap.NewNop(),
		Clock:           e.Clock,
		Billing:         e.Billing,
		AuthzSvc:        e.Authz,
		AuditSvc:        e.Audit,
		OrganizationSvc: e.Organizations,
		PropertySvc:     e.Properties,
		LedgerSvc:       e.Ledger,
		BookingSvc:      e.Bookings,
		FeePlanSvc:      e.FeePlans,
		KPISvc:          e.KPIs,
		InvoiceSvc:      e.Invoices,
		PaymentSvc:      e.Payments,
	})

	ts := &testServer{engine: e, router: router, adminID: e.Node.Generate()}
	rec := ts.do(t, ts.admin(), http.MethodPost, "/api/v1/orgs", map[string]any{
		"name":          "Seaside Rentals",
		"currency":      "USD",
		"billing_email": "billing@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &ts.org)
	return ts
}

func (ts *testServer) admin() string {
	return fmt.Sprintf("user:%s", ts.adminID.String())
}

func (ts *testServer) path(suffix string) string {
	return fmt.Sprintf("/api/v1/orgs/%s%s", ts.org.ID.String(), suffix)
}

func (ts *testServer) do(t *testing.T, actor string, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(HeaderActor, actor)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) seedMarch(t *testing.T) propertydomain.Property {
	t.Helper()

	rec := ts.do(t, ts.admin(), http.MethodPost, ts.path("/properties"), map[string]any{"name": "Dune House"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var property propertydomain.Property
	decode(t, rec, &property)

	for _, entry := range []map[string]any{
		{"property_id": property.ID.String(), "amount_minor": 300000, "entry_date": "2025-03-03"},
		{"property_id": property.ID.String(), "amount_minor": 200000, "entry_date": "2025-03-28"},
		{"property_id": property.ID.String(), "amount_minor": -80000, "entry_date": "2025-03-15"},
	} {
		rec := ts.do(t, ts.admin(), http.MethodPost, ts.path("/ledger-entries"), entry)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return property
}

func (ts *testServer) generate(t *testing.T, month string, propertyID snowflake.ID) (*httptest.ResponseRecorder, invoicedomain.GenerateResult) {
	t.Helper()

	rec := ts.do(t, ts.admin(), http.MethodPost, ts.path("/invoices/generate"), map[string]any{
		"month":       month,
		"property_id": propertyID.String(),
	})
	var result invoicedomain.GenerateResult
	if rec.Code < 300 {
		decode(t, rec, &result)
	}
	return rec, result
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var resp errorResponse
	decode(t, rec, &resp)
	code := ""
	if len(resp.Error.Errors) > 0 {
		code = resp.Error.Errors[0].Code
	}
	return resp.Error.Type, code
}

func TestGenerateInvoiceCreatedThenExisting(t *testing.T) {
	ts := newTestServer(t)
	property := ts.seedMarch(t)

	rec, first := ts.generate(t, "2025-03", property.ID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, first.Created)
	assert.Equal(t, int64(60000), first.Invoice.FeeMinor)
	assert.Equal(t, int64(60000), first.Invoice.AmountDueMinor)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, first.Invoice.Status)
	assert.Equal(t, "api", first.Invoice.Metadata["generated_by"])

	rec, second := ts.generate(t, "2025-03", property.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, second.Created)
	assert.Equal(t, first.Invoice.ID, second.Invoice.ID)
	assert.Equal(t, first.Invoice.InvoiceNumber, second.Invoice.InvoiceNumber)
}

func TestGenerateInvoiceRejectsMalformedMonth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, ts.admin(), http.MethodPost, ts.path("/invoices/generate"), map[string]any{"month": "March"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errType, code := errorCode(t, rec)
	assert.Equal(t, "validation_error", errType)
	assert.Equal(t, "invalid_month", code)
}

func TestRequestsWithoutActorAreUnauthorized(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, "", http.MethodGet, ts.path("/invoices"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, "user:not-a-number", http.MethodGet, ts.path("/invoices"), nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMalformedOrgIDIsValidationError(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, ts.admin(), http.MethodGet, "/api/v1/orgs/abc/invoices", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, code := errorCode(t, rec)
	assert.Equal(t, "invalid_organization", code)
}

func TestMemberCannotRunAdminActions(t *testing.T) {
	ts := newTestServer(t)
	property := ts.seedMarch(t)
	_, result := ts.generate(t, "2025-03", property.ID)

	memberID := ts.engine.Node.Generate()
	rec := ts.do(t, ts.admin(), http.MethodPost, ts.path("/members"), map[string]any{
		"user_id": memberID.String(),
		"role":    "member",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	member := fmt.Sprintf("user:%s", memberID.String())
	rec = ts.do(t, member, http.MethodGet, ts.path("/invoices/"+result.Invoice.ID.String()), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, member, http.MethodPost, ts.path("/invoices/"+result.Invoice.ID.String()+"/status"), map[string]any{"status": "void"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	outsider := fmt.Sprintf("user:%s", ts.engine.Node.Generate().String())
	rec = ts.do(t, outsider, http.MethodGet, ts.path("/invoices"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPaymentSettlesAndRemovalReverts(t *testing.T) {
	ts := newTestServer(t)
	property := ts.seedMarch(t)
	_, result := ts.generate(t, "2025-03", property.ID)
	invoicePath := ts.path("/invoices/" + result.Invoice.ID.String())

	rec := ts.do(t, ts.admin(), http.MethodPost, invoicePath+"/payments", map[string]any{
		"amount_minor": 60000,
		"method":       "bank",
		"payment_date": "2025-04-05",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid invoicedomain.Invoice
	decode(t, rec, &paid)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, paid.Status)

	rec = ts.do(t, ts.admin(), http.MethodGet, invoicePath+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data []struct {
			ID snowflake.ID `json:"id"`
		} `json:"data"`
	}
	decode(t, rec, &listed)
	require.Len(t, listed.Data, 1)

	rec = ts.do(t, ts.admin(), http.MethodDelete, ts.path("/payments/"+listed.Data[0].ID.String()), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reverted invoicedomain.Invoice
	decode(t, rec, &reverted)
	assert.Equal(t, invoicedomain.InvoiceStatusDue, reverted.Status)
}

func TestUnknownInvoiceIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, ts.admin(), http.MethodGet, ts.path("/invoices/12345"), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	errType, _ := errorCode(t, rec)
	assert.Equal(t, "not_found", errType)
}

func TestKPISnapshotAndHistoryBounds(t *testing.T) {
	ts := newTestServer(t)
	property := ts.seedMarch(t)

	rec := ts.do(t, ts.admin(), http.MethodGet, ts.path("/kpis?month=2025-03&property_id="+property.ID.String()), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snapshot kpidomain.Snapshot
	decode(t, rec, &snapshot)
	assert.Equal(t, "2025-03", snapshot.Month)
	assert.Equal(t, int64(500000), snapshot.GrossRevenueMinor)
	assert.Equal(t, int64(80000), snapshot.ExpensesMinor)

	rec = ts.do(t, ts.admin(), http.MethodGet, ts.path("/kpis?month=03-2025"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, ts.admin(), http.MethodGet, ts.path("/kpis/history?months=3"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var history struct {
		Data []kpidomain.Snapshot `json:"data"`
	}
	decode(t, rec, &history)
	require.Len(t, history.Data, 3)
	assert.Equal(t, "2025-02", history.Data[0].Month)
	assert.Equal(t, "2025-04", history.Data[2].Month)

	rec = ts.do(t, ts.admin(), http.MethodGet, ts.path("/kpis/history?months=30"), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	_, code := errorCode(t, rec)
	assert.Equal(t, "invalid_months", code)
}

func TestMapErrorMarksStorageOutagesRetryable(t *testing.T) {
	status, payload := mapError(fmt.Errorf("find invoice: %w", driver.ErrBadConn))
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.True(t, payload.Retryable)

	status, payload = mapError(context.DeadlineExceeded)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.True(t, payload.Retryable)

	status, payload = mapError(invoicedomain.ErrInvalidStatusTransition)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "status_transition", payload.Errors[0].Field)

	status, _ = mapError(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestParseActor(t *testing.T) {
	actor, ok := parseActor("system")
	require.True(t, ok)
	assert.Equal(t, "system", actor.subject())

	actor, ok = parseActor(" user:42 ")
	require.True(t, ok)
	assert.Equal(t, "user:42", actor.subject())

	for _, raw := range []string{"", "user:", "user:0", "admin", "api_key:1"} {
		_, ok := parseActor(raw)
		assert.False(t, ok, raw)
	}
}

func TestYearMonthValidator(t *testing.T) {
	registerValidators()

	month, err := parseOptionalMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), *month)

	_, err = parseOptionalMonth("2025-13")
	assert.Error(t, err)
}
