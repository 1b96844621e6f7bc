package templates

import (
	"fmt"
	"html"
	"strings"

	"github.com/clinicdesk/clinic-api/models"
)

// RenderPrescriptionEmail generates the HTML prescription document. Used
// for both the email body and the document download endpoint.
func RenderPrescriptionEmail(settings models.SettingsDetails, prescription models.Prescription) string {
	var rows strings.Builder
	for _, med := range prescription.Details.Medicines {
		rows.WriteString(fmt.Sprintf(`<tr>
        <td>%s</td>
        <td>%s</td>
        <td>%s</td>
        <td>%s</td>
        <td>%s</td>
      </tr>`,
			html.EscapeString(med.Name),
			html.EscapeString(med.Dosage),
			html.EscapeString(med.Frequency),
			html.EscapeString(med.Duration),
			html.EscapeString(med.Instructions),
		))
	}

	doctor := settings.Doctor
	doctorLine := html.EscapeString(doctor.Name)
	if doctor.Qualification != "" {
		doctorLine += ", " + html.EscapeString(doctor.Qualification)
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <title>Prescription</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f4f6f8; color: #1f2937; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; padding: 40px 30px; }
    .clinic { font-size: 20px; font-weight: 700; color: #155e75; }
    .doctor { font-size: 14px; color: #374151; margin-top: 4px; }
    .meta { color: #6b7280; font-size: 13px; margin: 16px 0 24px; }
    table { width: 100%%; border-collapse: collapse; font-size: 14px; }
    th, td { padding: 8px 6px; border-bottom: 1px solid #e5e7eb; text-align: left; }
    .notes { margin-top: 24px; font-size: 13px; color: #374151; }
  </style>
</head>
<body>
  <div class="container">
    <div class="clinic">%s</div>
    <div class="doctor">%s<br>%s &middot; Reg. no %s</div>
    <div class="meta">Patient: %s<br>Date: %s</div>
    <table>
      <tr><th>Medicine</th><th>Dosage</th><th>Frequency</th><th>Duration</th><th>Instructions</th></tr>
      %s
    </table>
    <div class="notes">%s</div>
  </div>
</body>
</html>`,
		html.EscapeString(settings.ClinicName),
		doctorLine,
		html.EscapeString(doctor.Specialty),
		html.EscapeString(doctor.RegistrationNumber),
		html.EscapeString(prescription.Details.PatientName),
		html.EscapeString(prescription.Details.Date),
		rows.String(),
		html.EscapeString(prescription.Details.Notes),
	)
}
