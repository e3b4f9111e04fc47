package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

// Receipt is the data printed on a fee receipt.
type Receipt struct {
	FeeID       string
	StudentID   string
	Type        string
	Description string
	Amount      float64
	AmountPaid  float64
	Outstanding float64
	Status      string
	DueDate     time.Time
	Payments    []ReceiptLine
	IssuedAt    time.Time
}

// ReceiptLine is one payment on a receipt.
type ReceiptLine struct {
	PaidAt    time.Time
	Method    string
	Reference string
	Amount    float64
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"date":  func(t time.Time) string { return t.UTC().Format("02 Jan 2006") },
}).Parse(`<html><head><meta charset="utf-8"><title>Fee receipt {{.FeeID}}</title>
<style>body{font-family:sans-serif;margin:32px}table{border-collapse:collapse;width:100%}td,th{border:1px solid #ccc;padding:6px;text-align:left}</style>
</head><body>
<h1>Fee receipt</h1>
<p>Receipt for fee <strong>{{.FeeID}}</strong>, student <strong>{{.StudentID}}</strong>.</p>
<table>
<tr><th>Type</th><td>{{.Type}}</td></tr>
{{if .Description}}<tr><th>Description</th><td>{{.Description}}</td></tr>{{end}}
<tr><th>Due date</th><td>{{date .DueDate}}</td></tr>
<tr><th>Amount</th><td>{{money .Amount}}</td></tr>
<tr><th>Paid</th><td>{{money .AmountPaid}}</td></tr>
<tr><th>Outstanding</th><td>{{money .Outstanding}}</td></tr>
<tr><th>Status</th><td>{{.Status}}</td></tr>
</table>
<h2>Payments</h2>
{{if .Payments}}<table><tr><th>Date</th><th>Method</th><th>Reference</th><th>Amount</th></tr>
{{range .Payments}}<tr><td>{{date .PaidAt}}</td><td>{{.Method}}</td><td>{{.Reference}}</td><td>{{money .Amount}}</td></tr>
{{end}}</table>{{else}}<p>No payments recorded.</p>{{end}}
<p>Issued {{date .IssuedAt}}</p>
</body></html>`))

// ReceiptHTML renders the receipt markup.
func ReceiptHTML(r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", fmt.Errorf("report: receipt template: %w", err)
	}
	return buf.String(), nil
}

// RenderReceipt renders the receipt to PDF through Gotenberg.
func (c *Client) RenderReceipt(ctx context.Context, r Receipt) ([]byte, error) {
	html, err := ReceiptHTML(r)
	if err != nil {
		return nil, err
	}
	return c.RenderHTMLPage(ctx, html, ReceiptPage)
}
