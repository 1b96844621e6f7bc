package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/clinicdesk/clinic-api/databases"
	"github.com/clinicdesk/clinic-api/models"
	templates "github.com/clinicdesk/clinic-api/templates/html"
)

// Scheduler handles periodic background jobs for the clinic
type Scheduler struct {
	cron       *cron.Cron
	ADB        databases.AppointmentDatabase
	PDB        databases.PatientDatabase
	SDB        databases.SettingsDatabase
	LockDB     databases.SchedulerLockDatabase
	instanceID string
}

// NewScheduler creates a new scheduler instance
func NewScheduler(
	aDB databases.AppointmentDatabase,
	pDB databases.PatientDatabase,
	sDB databases.SettingsDatabase,
	lockDB databases.SchedulerLockDatabase,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		ADB:        aDB,
		PDB:        pDB,
		SDB:        sDB,
		LockDB:     lockDB,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Send reminders for tomorrow's appointments daily at 7 AM UTC
	_, err := s.cron.AddFunc("0 7 * * *", s.sendAppointmentReminders)
	if err != nil {
		zap.S().Errorw("failed to register appointment reminder job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Appointment reminder scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Appointment reminder scheduler stopped")
}

// sendAppointmentReminders emails every patient with a scheduled
// appointment tomorrow who has not already been reminded
func (s *Scheduler) sendAppointmentReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (10 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "appointment_reminder_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for reminder job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Reminder job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "appointment_reminder_job", s.instanceID)

	tomorrow := time.Now().UTC().Add(24 * time.Hour).Format("2006-01-02")

	zap.S().Infow("Running appointment reminder job", "instance", s.instanceID, "date", tomorrow)

	appointments, err := s.ADB.Find(ctx, bson.M{
		"appointment.date":         tomorrow,
		"appointment.status":       models.AppointmentStatusScheduled,
		"appointment.reminderSent": false,
	})
	if err != nil {
		zap.S().Errorw("failed to find appointments for reminders", "error", err)
		return
	}

	sent := 0
	settingsByAccount := map[string]models.SettingsDetails{}
	for _, appointment := range appointments {
		accountID := appointment.Details.AccountID
		settings, ok := settingsByAccount[accountID]
		if !ok {
			settings = models.DefaultSettingsDetails(accountID)
			if dbResp, err := s.SDB.FindByAccount(ctx, accountID); err == nil {
				settings = dbResp.Details
			}
			settingsByAccount[accountID] = settings
		}

		if s.sendReminderEmail(ctx, appointment, settings) {
			sent++
		}
	}

	zap.S().Infow("Appointment reminder job complete",
		"appointmentsFound", len(appointments),
		"remindersSent", sent,
	)
}

// sendReminderEmail emails one patient and marks the appointment as
// reminded. Appointments whose patient has no email address are marked
// too, so they are not retried every day.
func (s *Scheduler) sendReminderEmail(ctx context.Context, appointment models.Appointment, settings models.SettingsDetails) bool {
	email, name := s.getPatientEmail(ctx, appointment.Details.PatientID, appointment.Details.AccountID)
	if email == "" {
		zap.S().Warnw("appointment patient has no email, skipping reminder",
			"appointmentId", appointment.ID.Hex())
		s.markReminderSent(ctx, appointment.ID)
		return false
	}
	if name == "" {
		name = appointment.Details.PatientName
	}

	subject := fmt.Sprintf("Appointment reminder - %s", settings.ClinicName)
	body := fmt.Sprintf("Hello %s,\n\nThis is a reminder of your appointment at %s on %s at %s.\n\nIf you need to reschedule, please contact us at %s.",
		name, settings.ClinicName, appointment.Details.Date, appointment.Details.Time, settings.Phone)
	htmlContent := templates.RenderGenericEmail(settings.ClinicName, subject, body)
	plainText := fmt.Sprintf("Reminder: you have an appointment at %s on %s at %s.",
		settings.ClinicName, appointment.Details.Date, appointment.Details.Time)

	fromName := settings.EmailSender.FromName
	if fromName == "" {
		fromName = settings.ClinicName
	}
	fromEmail := settings.EmailSender.FromEmail
	if fromEmail == "" {
		fromEmail = os.Getenv("SENDGRID_FROM_EMAIL")
	}

	if err := s.sendEmail(fromName, fromEmail, name, email, subject, htmlContent, plainText); err != nil {
		zap.S().Errorw("failed to send reminder email", "error", err, "appointmentId", appointment.ID.Hex())
		return false
	}

	s.markReminderSent(ctx, appointment.ID)
	return true
}

func (s *Scheduler) markReminderSent(ctx context.Context, appointmentID primitive.ObjectID) {
	err := s.ADB.UpdateOne(ctx, bson.M{"_id": appointmentID}, bson.M{"$set": bson.M{
		"appointment.reminderSent": true,
		"appointment.updatedAt":    primitive.NewDateTimeFromTime(time.Now()),
	}})
	if err != nil {
		zap.S().Errorw("failed to mark reminder sent", "error", err, "appointmentId", appointmentID.Hex())
	}
}

func (s *Scheduler) getPatientEmail(ctx context.Context, patientID, accountID string) (email, name string) {
	if patientID == "" {
		return "", ""
	}
	pID, err := primitive.ObjectIDFromHex(patientID)
	if err != nil {
		return "", ""
	}
	patient, err := s.PDB.FindOne(ctx, bson.M{"_id": pID, "patient.accountID": accountID})
	if err != nil || patient.Details.Email == "" {
		return "", ""
	}
	return patient.Details.Email, patient.Details.Name
}

func (s *Scheduler) sendEmail(fromName, fromEmail, toName, toEmail, subject, htmlContent, plainText string) error {
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
