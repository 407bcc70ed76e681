package render

import (
	"bytes"
	"html/template"
	"strings"
)

const invoiceEmailTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.InvoiceNumber}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 40px;
      font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
      color: #1a1f36;
      background: #f7f9fc;
    }
    .invoice-card {
      background: #ffffff;
      max-width: 640px;
      margin: 0 auto;
      padding: 48px;
      border-radius: 4px;
    }
    .label {
      font-size: 11px;
      text-transform: uppercase;
      color: #8792a2;
      margin-bottom: 6px;
      font-weight: 600;
    }
    .value { font-size: 14px; line-height: 1.5; }
    .amount-large { font-size: 32px; font-weight: 700; margin: 24px 0 4px; }
    .view-link { font-size: 13px; color: #006aff; text-decoration: none; font-weight: 500; }
    table { width: 100%; border-collapse: collapse; margin: 32px 0; }
    td { padding: 10px 0; border-bottom: 1px solid #e3e8ee; font-size: 14px; }
    .td-right { text-align: right; }
    .footer { margin-top: 40px; font-size: 12px; color: #8792a2; }
  </style>
</head>
<body>
  <div class="invoice-card">
    <h1 style="margin: 0; font-size: 22px;">{{.OrgName}}</h1>
    <div class="label" style="margin-top: 16px;">Invoice number</div>
    <div class="value">{{.InvoiceNumber}}</div>
    <div class="label" style="margin-top: 12px;">Billing month</div>
    <div class="value">{{.BillMonth}}{{if .PropertyName}} &middot; {{.PropertyName}}{{end}}</div>

    <div class="amount-large">{{.AmountDue}}</div>
    <div class="value" style="color: #697386;">management fee due</div>
    {{if .ViewURL}}<a href="{{.ViewURL}}" class="view-link">View invoice &rarr;</a>{{end}}

    <table>
      <tbody>
        {{range .Lines}}
        <tr>
          <td>{{.Label}}</td>
          <td class="td-right">{{.Amount}}</td>
        </tr>
        {{end}}
      </tbody>
    </table>

    <div class="footer">This invoice was generated automatically for {{.OrgName}}.</div>
  </div>
</body>
</html>
`

// Line is one labelled, preformatted amount in the invoice summary.
type Line struct {
	Label  string
	Amount string
}

// EmailInput is the preformatted view of an invoice notification.
type EmailInput struct {
	OrgName       string
	InvoiceNumber string
	BillMonth     string
	PropertyName  string
	AmountDue     string
	ViewURL       string
	Lines         []Line
}

type Renderer interface {
	RenderEmail(input EmailInput) (subject string, body string, err error)
}

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice_email").Parse(invoiceEmailTemplate)),
	}
}

func (r *HTMLRenderer) RenderEmail(input EmailInput) (string, string, error) {
	if strings.TrimSpace(input.OrgName) == "" {
		input.OrgName = "Invoice"
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", "", err
	}

	subject := "Invoice " + input.InvoiceNumber + " for " + input.BillMonth
	return subject, buf.String(), nil
}
