package templates

import (
	"fmt"
	"html"
	"strings"

	"github.com/clinicdesk/clinic-api/models"
)

// FormatAmount renders integer cents as a decimal amount with the
// currency code, e.g. 12345 -> "123.45 USD"
func FormatAmount(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}

// RenderInvoiceEmail generates the HTML invoice document for a bill. The
// same markup is used for the invoice email body and the document
// download endpoint.
func RenderInvoiceEmail(settings models.SettingsDetails, bill models.Bill) string {
	currency := settings.Currency
	if currency == "" {
		currency = "usd"
	}

	var rows strings.Builder
	for _, item := range bill.Details.Items {
		rows.WriteString(fmt.Sprintf(`<tr>
        <td>%s</td>
        <td class="num">%d</td>
        <td class="num">%s</td>
        <td class="num">%s</td>
      </tr>`,
			html.EscapeString(item.Description),
			item.Quantity,
			FormatAmount(item.UnitPrice, currency),
			FormatAmount(item.Amount, currency),
		))
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <title>Invoice %s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f6f8; color: #1f2937; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 40px 30px; }
    .clinic { font-size: 20px; font-weight: 700; color: #155e75; }
    .meta { color: #6b7280; font-size: 13px; margin-bottom: 24px; }
    table { width: 100%%; border-collapse: collapse; font-size: 14px; }
    th, td { padding: 8px 6px; border-bottom: 1px solid #e5e7eb; text-align: left; }
    td.num, th.num { text-align: right; }
    .totals td { border-bottom: none; }
    .grand { font-weight: 700; font-size: 16px; }
    .status { display: inline-block; padding: 2px 10px; border-radius: 10px; font-size: 12px; background-color: #fef3c7; color: #92400e; }
  </style>
</head>
<body>
  <div class="container">
    <div class="clinic">%s</div>
    <div class="meta">%s<br>%s</div>
    <h2>Invoice %s <span class="status">%s</span></h2>
    <div class="meta">Billed to: %s<br>Date: %s</div>
    <table>
      <tr><th>Description</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Amount</th></tr>
      %s
      <tr class="totals"><td colspan="3" class="num">Subtotal</td><td class="num">%s</td></tr>
      <tr class="totals"><td colspan="3" class="num">Tax</td><td class="num">%s</td></tr>
      <tr class="totals"><td colspan="3" class="num">Discount</td><td class="num">%s</td></tr>
      <tr class="totals grand"><td colspan="3" class="num">Total</td><td class="num">%s</td></tr>
    </table>
  </div>
</body>
</html>`,
		html.EscapeString(bill.Details.InvoiceNumber),
		html.EscapeString(settings.ClinicName),
		html.EscapeString(settings.Address),
		html.EscapeString(settings.Phone),
		html.EscapeString(bill.Details.InvoiceNumber),
		html.EscapeString(bill.Details.Status),
		html.EscapeString(bill.Details.PatientName),
		html.EscapeString(bill.Details.Date),
		rows.String(),
		FormatAmount(bill.Details.Subtotal, currency),
		FormatAmount(bill.Details.Tax, currency),
		FormatAmount(bill.Details.Discount, currency),
		FormatAmount(bill.Details.Total, currency),
	)
}
