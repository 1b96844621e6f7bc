package handlers

import (
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-api/models"
)

// sendEmail delivers a single HTML email through SendGrid. A non-2xx
// SendGrid response is logged but not treated as a delivery failure,
// matching the fire-and-forget contract the clinic has always had.
func sendEmail(fromName, fromEmail, toName, toEmail, subject, htmlContent, plainText string) error {
	from := mail.NewEmail(fromName, fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}

// senderFor resolves the from address for an account: the configured
// sender from settings when present, otherwise the platform-wide sender
// from the environment.
func senderFor(settings models.SettingsDetails) (name, email string) {
	name = settings.EmailSender.FromName
	email = settings.EmailSender.FromEmail
	if name == "" {
		name = settings.ClinicName
	}
	if email == "" {
		email = os.Getenv("SENDGRID_FROM_EMAIL")
	}
	return name, email
}
