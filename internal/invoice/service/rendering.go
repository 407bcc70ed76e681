package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/propbill/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/propbill/internal/invoice/format"
	"github.com/smallbiznis/propbill/internal/invoice/render"
	organizationdomain "github.com/smallbiznis/propbill/internal/organization/domain"
	"github.com/smallbiznis/propbill/internal/period"
	"github.com/smallbiznis/propbill/internal/providers/pdf"
	"go.uber.org/zap"
)

func (s *Service) RenderPDF(ctx context.Context, orgID, id snowflake.ID) ([]byte, error) {
	if s.pdf == nil {
		return nil, invoicedomain.ErrRendererNotConfigured
	}
	invoice, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	org, err := s.orgSvc.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	data := pdf.InvoiceData{
		OrgName:       org.Name,
		OrgEmail:      org.BillingEmail,
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     invoice.CreatedAt.UTC().Format(time.DateOnly),
		BillMonth:     period.Format(invoice.BillMonth),
		PropertyName:  s.propertyName(ctx, invoice),
		Status:        string(invoice.Status),
		AmountDue:     invoiceformat.FormatAmount(invoice.AmountDueMinor, invoice.Currency),
	}
	if invoice.PaidAt != nil {
		data.PaidDate = invoice.PaidAt.UTC().Format(time.DateOnly)
	}
	for _, line := range summaryLines(invoice) {
		data.Lines = append(data.Lines, pdf.InvoiceLine{Label: line.Label, Amount: line.Amount})
	}
	for _, stat := range statLines(invoice) {
		data.Stats = append(data.Stats, pdf.InvoiceLine{Label: stat.Label, Amount: stat.Amount})
	}

	reader, err := s.pdf.GenerateInvoice(ctx, data)
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, invoicedomain.ErrRendererNotConfigured
	}
	return io.ReadAll(reader)
}

func (s *Service) NotifyCreated(ctx context.Context, invoice invoicedomain.Invoice) error {
	if s.email == nil {
		return nil
	}
	org, err := s.orgSvc.GetByID(ctx, invoice.OrgID)
	if err != nil {
		return err
	}
	recipient := strings.TrimSpace(org.BillingEmail)
	if recipient == "" {
		s.log.Debug("invoice notification skipped, no billing email",
			zap.String("org_id", invoice.OrgID.String()),
			zap.String("invoice_id", invoice.ID.String()),
		)
		return nil
	}

	subject, body, err := s.renderer.RenderEmail(render.EmailInput{
		OrgName:       org.Name,
		InvoiceNumber: invoice.InvoiceNumber,
		BillMonth:     period.Format(invoice.BillMonth),
		PropertyName:  s.propertyName(ctx, &invoice),
		AmountDue:     invoiceformat.FormatAmount(invoice.AmountDueMinor, invoice.Currency),
		ViewURL:       s.invoiceURL(org, invoice),
		Lines:         summaryLines(&invoice),
	})
	if err != nil {
		return err
	}

	if err := s.email.Send(ctx, []string{recipient}, subject, body); err != nil {
		return err
	}
	return s.MarkSent(ctx, invoice.OrgID, invoice.ID, s.clock.Now())
}

func (s *Service) propertyName(ctx context.Context, invoice *invoicedomain.Invoice) string {
	if invoice.PropertyID == 0 {
		return ""
	}
	property, err := s.propertySvc.Get(ctx, invoice.OrgID, invoice.PropertyID)
	if err != nil {
		s.log.Debug("property lookup failed", zap.String("property_id", invoice.PropertyID.String()), zap.Error(err))
		return ""
	}
	return property.Name
}

func (s *Service) invoiceURL(org *organizationdomain.Organization, invoice invoicedomain.Invoice) string {
	if s.portalBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/orgs/%s/invoices/%s", s.portalBaseURL, org.ID.String(), invoice.ID.String())
}

func summaryLines(invoice *invoicedomain.Invoice) []render.Line {
	currency := invoice.Currency
	tier := ""
	if v, ok := invoice.Metadata["tier"].(string); ok && v != "" {
		tier = strings.ToUpper(v[:1]) + v[1:] + ", "
	}
	return []render.Line{
		{Label: "Gross revenue", Amount: invoiceformat.FormatAmount(invoice.GrossRevenueMinor, currency)},
		{Label: "Expenses", Amount: invoiceformat.FormatAmount(invoice.ExpensesMinor, currency)},
		{Label: fmt.Sprintf("Management fee (%s%d%%)", tier, invoice.FeePercent), Amount: invoiceformat.FormatAmount(invoice.FeeMinor, currency)},
		{Label: "Net revenue", Amount: invoiceformat.FormatAmount(invoice.NetRevenueMinor, currency)},
	}
}

func statLines(invoice *invoicedomain.Invoice) []render.Line {
	var lines []render.Line
	if nights, ok := invoice.Metadata["nights_booked"]; ok {
		lines = append(lines, render.Line{Label: "Nights booked", Amount: fmt.Sprint(nights)})
	}
	if raw, ok := invoice.Metadata["occupancy_rate"].(string); ok {
		if rate, err := decimal.NewFromString(raw); err == nil {
			lines = append(lines, render.Line{Label: "Occupancy", Amount: invoiceformat.FormatRate(rate)})
		}
	}
	return lines
}
