package invoices

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shaid-7908/display-doctor-v2/report"
)

// PDFRenderer turns invoices into printable PDFs via Gotenberg. Concurrent
// requests for the same invoice collapse into one render.
type PDFRenderer struct {
	client  *report.Client
	service *Service
	group   singleflight.Group
	printer *message.Printer
}

// NewPDFRenderer builds a renderer.
func NewPDFRenderer(client *report.Client, service *Service) *PDFRenderer {
	return &PDFRenderer{
		client:  client,
		service: service,
		printer: message.NewPrinter(language.English),
	}
}

// Render produces the PDF for an invoice.
func (r *PDFRenderer) Render(ctx context.Context, id int64) ([]byte, error) {
	invoice, err := r.service.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err, _ := r.group.Do(invoice.Number, func() (any, error) {
		html, err := r.renderHTML(invoice)
		if err != nil {
			return nil, err
		}
		return r.client.RenderHTML(ctx, html)
	})
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (r *PDFRenderer) amount(v float64) string {
	return r.printer.Sprintf("₹%.2f", v)
}

func (r *PDFRenderer) renderHTML(invoice *Invoice) (string, error) {
	data := map[string]any{
		"Invoice":     invoice,
		"IssuedOn":    invoice.CreatedAt.Format("02 Jan 2006"),
		"Labour":      r.amount(invoice.LabourCharge),
		"Parts":       r.amount(invoice.PartsCost),
		"Visit":       r.amount(invoice.VisitCharge),
		"Discount":    r.amount(invoice.Discount),
		"Subtotal":    r.amount(invoice.Subtotal),
		"Tax":         r.amount(invoice.TaxAmount),
		"FinalAmount": r.amount(invoice.FinalAmount),
		"TaxPercent":  fmt.Sprintf("%.0f%%", TaxRate*100),
	}
	if invoice.WarrantyUntil != nil {
		data["WarrantyUntil"] = invoice.WarrantyUntil.Format("02 Jan 2006")
	}
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("invoices: render template: %w", err)
	}
	return buf.String(), nil
}

// Healthy reports whether the PDF backend responds.
func (r *PDFRenderer) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.client.Ping(ctx)
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Invoice.Number}}</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 40px; color: #222; }
h1 { font-size: 20px; margin-bottom: 0; }
.muted { color: #777; font-size: 12px; }
table { width: 100%; border-collapse: collapse; margin-top: 24px; }
th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #ddd; font-size: 13px; }
td.num { text-align: right; }
tr.total td { font-weight: bold; border-top: 2px solid #222; }
</style>
</head>
<body>
<h1>Display Doctor</h1>
<p class="muted">Invoice {{.Invoice.Number}} &middot; Issued {{.IssuedOn}} &middot; Ticket {{.Invoice.IssueCode}}</p>

<p>
<strong>{{.Invoice.CustomerName}}</strong><br>
{{.Invoice.CustomerAddr}}<br>
{{.Invoice.CustomerPhone}}
</p>

<p class="muted">Device: {{.Invoice.DeviceType}}{{with .Invoice.DeviceBrand}} &middot; {{.}}{{end}}{{with .Invoice.DeviceModel}} {{.}}{{end}}</p>

<table>
<tr><th>Item</th><th style="text-align:right">Amount</th></tr>
<tr><td>Labour charge</td><td class="num">{{.Labour}}</td></tr>
<tr><td>Parts</td><td class="num">{{.Parts}}</td></tr>
<tr><td>Visit charge</td><td class="num">{{.Visit}}</td></tr>
<tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
<tr><td>Discount</td><td class="num">&minus;{{.Discount}}</td></tr>
<tr><td>GST ({{.TaxPercent}})</td><td class="num">{{.Tax}}</td></tr>
<tr class="total"><td>Total due</td><td class="num">{{.FinalAmount}}</td></tr>
</table>

{{with .WarrantyUntil}}<p class="muted">Service warranty valid until {{.}}.</p>{{end}}
<p class="muted">Status: {{.Invoice.Status}}</p>
</body>
</html>`))
