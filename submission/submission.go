// Package submission turns a completed wizard into a stored application:
// it validates, prices, uploads the files, persists the row and announces it.
package submission

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/catalog"
	"github.com/ahmed-abdelmageed/vise-services-sub001/documents"
	"github.com/ahmed-abdelmageed/vise-services-sub001/events"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/storage"
	"github.com/ahmed-abdelmageed/vise-services-sub001/wizard"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	referenceAttempts = 5
	uploadConcurrency = 4
)

type ServiceLookup interface {
	Get(idOrTitle string) (models.ServiceDefinition, error)
}

type ReferenceGenerator interface {
	Reference() string
}

type EventPublisher interface {
	ApplicationSubmitted(ctx context.Context, evt events.ApplicationSubmitted) error
}

type Receipt struct {
	ReferenceId   string          `json:"reference_id"`
	ApplicationId string          `json:"application_id"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	// LocalOnlyFiles counts uploads that failed and were kept as metadata only.
	LocalOnlyFiles int `json:"local_only_files"`
}

type Assembler struct {
	DB        *gorm.DB
	Catalog   ServiceLookup
	Rules     wizard.Rules
	Refs      ReferenceGenerator
	Bucket    storage.Bucket
	Publisher EventPublisher
	Currency  string
	Log       *zap.Logger
	Now       func() time.Time
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// Submit stores one application and returns its reference id. Upload and
// notification problems degrade the result but never fail it; a database
// failure does, and the caller may simply submit again.
func (a *Assembler) Submit(ctx context.Context, form wizard.Form, docs *documents.Collector) (Receipt, error) {
	const op = "submission.Submit"
	form.Normalize()

	svc, err := a.Catalog.Get(form.ServiceId)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return Receipt{}, apperr.Invalid(op, map[string]string{"service_id": "exists"})
		}
		return Receipt{}, err
	}
	if docs == nil {
		docs = documents.NewCollector(form.TravellerCount())
	}
	if err := a.Rules.CheckAll(svc, form, docs); err != nil {
		return Receipt{}, err
	}
	total, err := catalog.ComputePrice(svc, form.TravellerCount(), form.AppointmentType)
	if err != nil {
		return Receipt{}, err
	}
	travelDate, _ := wizard.ParseTravelDate(form.TravelDate)
	travellers := make([]models.Traveller, form.TravellerCount())
	copy(travellers, form.Travellers)

	app := &models.VisaApplication{
		Id:              uuid.NewString(),
		FirstName:       form.FirstName,
		LastName:        form.LastName,
		Email:           form.Email,
		Phone:           form.Phone,
		Country:         svc.Title,
		ServiceId:       &svc.Id,
		ServiceType:     svc.Title,
		Nationality:     form.Nationality,
		MothersName:     form.MothersName,
		AppointmentType: form.AppointmentType,
		Location:        form.Location,
		VisaCity:        form.VisaCity,
		TravelDate:      travelDate,
		Adults:          form.Adults,
		Children:        form.Children,
		Travellers:      datatypes.NewJSONSlice(travellers),
		TotalPrice:      total,
		Currency:        a.Currency,
		Status:          models.StatusPending,
	}
	if form.VisaType != "" {
		vt := form.VisaType
		app.VisaType = &vt
	}

	log := a.Log.With(zap.String("application_id", app.Id))
	refs := a.upload(ctx, app.Id, docs.Attachments(), log)
	localOnly := 0
	for _, ref := range refs {
		if ref.LocalOnly {
			localOnly++
		}
		if ref.Type == models.FilePassport {
			app.PassportFiles = append(app.PassportFiles, ref)
		} else {
			app.PhotoFiles = append(app.PhotoFiles, ref)
		}
	}

	if err := a.persist(ctx, app); err != nil {
		a.cleanup(refs, log)
		return Receipt{}, err
	}
	log = log.With(zap.String("reference_id", app.ReferenceId))
	log.Info("application submitted", zap.String("service", svc.Title), zap.Int("travellers", app.TravellerCount()), zap.Int("local_only_files", localOnly))

	evt := events.ApplicationSubmitted{ApplicationId: app.Id, ReferenceId: app.ReferenceId, SubmittedAt: app.CreatedAt}
	if err := a.Publisher.ApplicationSubmitted(context.WithoutCancel(ctx), evt); err != nil {
		// the retry job picks up applications whose email status is still unset
		log.Error("could not publish application_submitted", zap.Error(err))
	}

	return Receipt{
		ReferenceId:    app.ReferenceId,
		ApplicationId:  app.Id,
		TotalPrice:     app.TotalPrice,
		Currency:       app.Currency,
		Status:         app.Status,
		LocalOnlyFiles: localOnly,
	}, nil
}

// upload stores every attachment concurrently. A failed upload is kept as a
// local-only entry so the submission can still go through.
func (a *Assembler) upload(ctx context.Context, appID string, atts []documents.Attachment, log *zap.Logger) []models.FileRef {
	refs := make([]models.FileRef, len(atts))
	now := a.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, att := range atts {
		i, att := i, att
		g.Go(func() error {
			ref := models.FileRef{
				Name:           att.File.Name,
				Type:           att.Kind,
				Size:           att.File.Size(),
				UploadedAt:     now,
				TravellerIndex: att.TravellerIndex,
			}
			key := storage.ApplicationKey(appID, att.Kind, att.TravellerIndex, now, att.File.Ext())
			url, err := a.Bucket.Upload(gctx, key, att.File.ContentType, bytes.NewReader(att.File.Data))
			if err != nil {
				log.Warn("upload failed, keeping file as local only",
					zap.String("kind", att.Kind), zap.Int("traveller_index", att.TravellerIndex), zap.Error(err))
				ref.LocalOnly = true
			} else {
				ref.Path = key
				ref.URL = url
			}
			refs[i] = ref
			return nil
		})
	}
	_ = g.Wait()
	return refs
}

// persist inserts the row, drawing a new reference id when one collides.
func (a *Assembler) persist(ctx context.Context, app *models.VisaApplication) error {
	const op = "submission.persist"
	var lastErr error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		app.ReferenceId = a.Refs.Reference()
		err := a.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(app).Error
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(apperr.Persistence, op, err, "could not save application")
		}
		lastErr = err
	}
	return apperr.Wrap(apperr.Persistence, op, lastErr, "could not allocate a unique reference id")
}

func (a *Assembler) cleanup(refs []models.FileRef, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, ref := range refs {
		if ref.LocalOnly || ref.Path == "" {
			continue
		}
		if err := a.Bucket.Delete(ctx, ref.Path); err != nil {
			log.Warn("could not remove orphaned upload", zap.String("path", ref.Path), zap.Error(err))
		}
	}
}
