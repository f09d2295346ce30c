package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MaxAttempts bounds how often the confirmation email is tried.
const MaxAttempts = 5

// Outcome reports what one delivery did.
type Outcome struct {
	ConfirmationSent bool
	TeamNotified     bool
	Skipped          bool
	EmailStatus      string
}

// Dispatcher sends the notifications of one application and records the
// resulting email status on its row.
type Dispatcher struct {
	db     *gorm.DB
	mailer Mailer
	texter Texter
	log    *zap.Logger
}

func NewDispatcher(db *gorm.DB, mailer Mailer, texter Texter, log *zap.Logger) *Dispatcher {
	return &Dispatcher{db: db, mailer: mailer, texter: texter, log: log.Named("notify")}
}

func confirmationFor(app *models.VisaApplication) Confirmation {
	return Confirmation{
		ApplicationId: app.Id,
		ReferenceId:   app.ReferenceId,
		Email:         app.Email,
		FirstName:     app.FirstName,
		LastName:      app.LastName,
		Country:       app.Country,
		ServiceType:   app.ServiceType,
		TravelDate:    app.TravelDate.Format("2006-01-02"),
		TotalPrice:    utils.Amount(app.TotalPrice),
		Currency:      app.Currency,
		Travellers:    app.Travellers,
	}
}

func teamNoticeFor(app *models.VisaApplication) TeamNotice {
	n := TeamNotice{
		Confirmation:    confirmationFor(app),
		Phone:           app.Phone,
		Nationality:     app.Nationality,
		MothersName:     app.MothersName,
		AppointmentType: app.AppointmentType,
		Location:        app.Location,
		VisaCity:        app.VisaCity,
		Adults:          app.Adults,
		Children:        app.Children,
	}
	if app.VisaType != nil {
		n.VisaType = *app.VisaType
	}
	n.Files = append(append(n.Files, app.PassportFiles...), app.PhotoFiles...)
	return n
}

// Deliver sends what is still owed for applicationID. The team is notified on
// the first attempt only; the applicant confirmation is retried until it is
// sent or MaxAttempts is reached. The attempt is claimed on the row before
// anything is sent, so a redelivered event cannot repeat it. Send failures
// are logged and recorded as pending_verification, never returned.
func (d *Dispatcher) Deliver(ctx context.Context, applicationID string) (Outcome, error) {
	const op = "notify.Deliver"
	var app models.VisaApplication
	if err := d.db.WithContext(ctx).First(&app, "id = ?", applicationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Outcome{}, apperr.New(apperr.NotFound, op, "application not found")
		}
		return Outcome{}, apperr.Wrap(apperr.Persistence, op, err, "could not load application")
	}
	if app.EmailSent || app.EmailAttempts >= MaxAttempts {
		return Outcome{Skipped: true, EmailStatus: app.EmailStatus}, nil
	}

	claim := d.db.WithContext(ctx).Model(&models.VisaApplication{}).
		Where("id = ? AND email_sent = ? AND email_attempts = ?", app.Id, false, app.EmailAttempts).
		Updates(map[string]any{
			"email_status":   models.EmailStatusPendingVerification,
			"email_attempts": gorm.Expr("email_attempts + 1"),
		})
	if claim.Error != nil {
		return Outcome{}, apperr.Wrap(apperr.Persistence, op, claim.Error, "could not claim delivery attempt")
	}
	if claim.RowsAffected == 0 {
		return Outcome{Skipped: true, EmailStatus: app.EmailStatus}, nil
	}

	log := d.log.With(zap.String("application_id", app.Id), zap.String("reference_id", app.ReferenceId))
	out := Outcome{EmailStatus: models.EmailStatusPendingVerification}
	first := app.EmailAttempts == 0

	if err := d.mailer.SendConfirmation(ctx, confirmationFor(&app)); err != nil {
		log.Warn("confirmation email failed", zap.Int("attempt", app.EmailAttempts+1), zap.Error(err))
	} else {
		out.ConfirmationSent = true
		out.EmailStatus = models.EmailStatusSent
	}

	if first {
		if err := d.mailer.SendTeamNotification(ctx, teamNoticeFor(&app)); err != nil {
			log.Warn("team notification failed", zap.Error(err))
		} else {
			out.TeamNotified = true
		}
		if d.texter != nil {
			body := fmt.Sprintf("New visa application %s: %s %s, %s, %d traveller(s), %s %s",
				app.ReferenceId, app.FirstName, app.LastName, app.ServiceType,
				app.TravellerCount(), utils.Amount(app.TotalPrice), app.Currency)
			if err := d.texter.NotifyTeam(ctx, body); err != nil {
				log.Warn("team sms failed", zap.Error(err))
			}
		}
	}

	if !out.ConfirmationSent {
		return out, nil
	}
	// the attempt is already counted; a lost "sent" mark only costs one more
	// confirmation from the retry job
	err := d.db.WithContext(ctx).Model(&models.VisaApplication{}).
		Where("id = ?", app.Id).
		Updates(map[string]any{"email_sent": true, "email_status": models.EmailStatusSent}).Error
	if err != nil {
		log.Error("could not record email status", zap.Error(err))
	}
	return out, nil
}

// Pending lists applications whose confirmation is still owed: never
// attempted and older than grace, or attempted and not yet sent.
func (d *Dispatcher) Pending(ctx context.Context, grace time.Duration, limit int) ([]string, error) {
	var ids []string
	cutoff := time.Now().Add(-grace)
	err := d.db.WithContext(ctx).Model(&models.VisaApplication{}).
		Where("email_sent = ? AND email_attempts < ?", false, MaxAttempts).
		Where("(email_status = ? AND created_at < ?) OR email_status = ?", "", cutoff, models.EmailStatusPendingVerification).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Persistence, "notify.Pending", err, "could not list pending notifications")
	}
	return ids, nil
}
