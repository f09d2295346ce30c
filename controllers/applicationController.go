package controllers

import (
	"errors"
	"io"
	"mime/multipart"
	"regexp"
	"strconv"
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database"
	"github.com/ahmed-abdelmageed/vise-services-sub001/documents"
	"github.com/ahmed-abdelmageed/vise-services-sub001/middlewares"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/wizard"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// file fields are named like passport[0] and photo[2]
var slotField = regexp.MustCompile(`^(passport|photo)\[(\d+)\]$`)

// ValidateInput is the JSON body of a step validation.
type ValidateInput struct {
	Step wizard.Step `json:"step"`
	Form wizard.Form `json:"form"`
}

// parseApplicationForm reads the wizard fields and files of a multipart
// request. Travellers come as a JSON array in the "travellers" field.
func parseApplicationForm(c *fiber.Ctx) (wizard.Form, *documents.Collector, error) {
	const op = "controllers.parseApplicationForm"
	var form wizard.Form
	if err := c.BodyParser(&form); err != nil {
		return form, nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if raw := strings.TrimSpace(c.FormValue("travellers")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form.Travellers); err != nil {
			return form, nil, apperr.Invalid(op, map[string]string{"travellers": "json"})
		}
	}
	form.Normalize()

	docs := documents.NewCollector(form.TravellerCount())
	mf, err := c.MultipartForm()
	if err != nil {
		return form, docs, nil
	}
	fields := map[string]string{}
	for name, headers := range mf.File {
		m := slotField.FindStringSubmatch(name)
		if m == nil || len(headers) == 0 {
			continue
		}
		idx, _ := strconv.Atoi(m[2])
		f, err := readFile(headers[0])
		if err != nil {
			return form, nil, fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
		}
		if _, err := docs.Attach(m[1], idx, f); err != nil {
			var ae *apperr.Error
			if !errors.As(err, &ae) {
				return form, nil, err
			}
			for k, v := range ae.Fields {
				fields[k] = v
			}
		}
	}
	if len(fields) > 0 {
		return form, nil, apperr.Invalid(op, fields)
	}
	return form, docs, nil
}

func readFile(fh *multipart.FileHeader) (documents.File, error) {
	r, err := fh.Open()
	if err != nil {
		return documents.File{}, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return documents.File{}, err
	}
	return documents.File{Name: fh.Filename, ContentType: fh.Header.Get(fiber.HeaderContentType), Data: data}, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// ValidateApplication runs the guard of one wizard step. JSON bodies cover
// steps 1 and 3; step 2 needs the files, so it is sent as multipart with a
// "step" field.
func (ctl *Controller) ValidateApplication(c *fiber.Ctx) error {
	const op = "controllers.ValidateApplication"
	var (
		in   ValidateInput
		docs *documents.Collector
	)
	if isMultipart(c) {
		form, collected, err := parseApplicationForm(c)
		if err != nil {
			return err
		}
		step, _ := strconv.Atoi(c.FormValue("step"))
		in = ValidateInput{Step: wizard.Step(step), Form: form}
		docs = collected
	} else {
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		in.Form.Normalize()
	}
	if !in.Step.Valid() {
		return apperr.Invalid(op, map[string]string{"step": "oneof"})
	}

	svc, err := ctl.Catalog.Get(in.Form.ServiceId)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return apperr.Invalid(op, map[string]string{"service_id": "exists"})
		}
		return err
	}
	if err := ctl.Rules.Check(in.Step, svc, in.Form, docs); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"valid": true, "step": in.Step, "step_name": in.Step.String()})
}

// SubmitApplication accepts the whole wizard as one multipart request.
func (ctl *Controller) SubmitApplication(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "expected multipart/form-data")
	}
	form, docs, err := parseApplicationForm(c)
	if err != nil {
		return err
	}
	receipt, err := ctl.Assembler.Submit(c.UserContext(), form, docs)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(receipt)
}

// TrackApplication is public, so it exposes only the workflow state.
func (ctl *Controller) TrackApplication(c *fiber.Ctx) error {
	var app models.VisaApplication
	err := ctl.DB.WithContext(c.UserContext()).
		Where("reference_id = ?", strings.ToUpper(param(c, "reference"))).
		First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, "controllers.TrackApplication", "application not found")
		}
		return apperr.Wrap(apperr.Persistence, "controllers.TrackApplication", err, "could not load application")
	}
	return c.JSON(fiber.Map{
		"reference_id": app.ReferenceId,
		"status":       app.Status,
		"service_type": app.ServiceType,
		"travel_date":  app.TravelDate.Format("2006-01-02"),
		"created_at":   app.CreatedAt,
	})
}

func (ctl *Controller) MyApplications(c *fiber.Ctx) error {
	var apps []models.VisaApplication
	err := ctl.DB.WithContext(c.UserContext()).
		Where("LOWER(email) = ?", middlewares.UserEmail(c)).
		Order("created_at DESC").
		Find(&apps).Error
	if err != nil {
		return apperr.Wrap(apperr.Persistence, "controllers.MyApplications", err, "could not list applications")
	}
	return c.JSON(fiber.Map{
		"applications": apps,
		"message":      "success",
	})
}

func (ctl *Controller) GetApplications(c *fiber.Ctx) error {
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	page, limit := pagination(c)
	q := db.Model(&models.VisaApplication{})
	if s := strings.TrimSpace(c.Query("status")); s != "" {
		q = q.Where("status = ?", s)
	}
	if s := strings.TrimSpace(c.Query("service")); s != "" {
		q = q.Where("service_id = ? OR service_type = ?", s, s)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, "controllers.GetApplications", err, "could not count applications")
	}
	var apps []models.VisaApplication
	if err := q.Order("created_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&apps).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, "controllers.GetApplications", err, "could not list applications")
	}
	return c.JSON(fiber.Map{
		"applications": apps,
		"total":        total,
		"page":         page,
		"limit":        limit,
		"message":      "success",
	})
}

func loadApplication(db *gorm.DB, id string) (models.VisaApplication, error) {
	var app models.VisaApplication
	if err := db.First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return app, apperr.New(apperr.NotFound, "controllers.loadApplication", "application not found")
		}
		return app, apperr.Wrap(apperr.Persistence, "controllers.loadApplication", err, "could not load application")
	}
	return app, nil
}

func (ctl *Controller) GetApplication(c *fiber.Ctx) error {
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	app, err := loadApplication(db, param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(app)
}

type StatusInput struct {
	Status string `json:"status" validate:"required,max=32"`
}

// UpdateApplicationStatus accepts any label of the application_status table.
func (ctl *Controller) UpdateApplicationStatus(c *fiber.Ctx) error {
	const op = "controllers.UpdateApplicationStatus"
	var in StatusInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	var label models.ApplicationStatus
	if err := db.Where("name = ?", strings.TrimSpace(in.Status)).First(&label).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Invalid(op, map[string]string{"status": "oneof"})
		}
		return apperr.Wrap(apperr.Persistence, op, err, "could not load status")
	}

	res := db.Model(&models.VisaApplication{}).Where("id = ?", param(c, "id")).Update("status", label.Name)
	if res.Error != nil {
		return apperr.Wrap(apperr.Persistence, op, res.Error, "could not update status")
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.NotFound, op, "application not found")
	}
	app, err := loadApplication(db, param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(app)
}

// DeleteApplication removes the row, its client documents and every stored
// object. Object deletion is best effort.
func (ctl *Controller) DeleteApplication(c *fiber.Ctx) error {
	const op = "controllers.DeleteApplication"
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	app, err := loadApplication(db, param(c, "id"))
	if err != nil {
		return err
	}
	var docs []models.ClientDocument
	if err := db.Where("application_id = ?", app.Id).Find(&docs).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not load documents")
	}
	if err := db.Where("application_id = ?", app.Id).Delete(&models.ClientDocument{}).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not delete documents")
	}
	if err := db.Delete(&app).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not delete application")
	}

	var paths []string
	for _, f := range append(app.PassportFiles, app.PhotoFiles...) {
		if !f.LocalOnly && f.Path != "" {
			paths = append(paths, f.Path)
		}
	}
	for _, d := range docs {
		if d.Path != "" {
			paths = append(paths, d.Path)
		}
	}
	ctl.deleteObjects(c, paths)
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteApplicationFile removes one entry of the passport or photo list.
func (ctl *Controller) DeleteApplicationFile(c *fiber.Ctx) error {
	const op = "controllers.DeleteApplicationFile"
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	app, err := loadApplication(db, param(c, "id"))
	if err != nil {
		return err
	}
	kind := param(c, "kind")
	list := app.Files(kind)
	if list == nil {
		return apperr.Invalid(op, map[string]string{"kind": "oneof"})
	}
	idx, err := strconv.Atoi(param(c, "index"))
	if err != nil || idx < 0 || idx >= len(*list) {
		return apperr.New(apperr.NotFound, op, "file not found")
	}

	removed := (*list)[idx]
	rest := datatypes.NewJSONSlice(append(append([]models.FileRef{}, (*list)[:idx]...), (*list)[idx+1:]...))
	column := kind + "_files"
	if err := db.Model(&app).Update(column, rest).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not update files")
	}
	if !removed.LocalOnly && removed.Path != "" {
		ctl.deleteObjects(c, []string{removed.Path})
	}
	*list = rest
	return c.JSON(app)
}

func (ctl *Controller) deleteObjects(c *fiber.Ctx, paths []string) {
	for _, p := range paths {
		if err := ctl.Bucket.Delete(c.UserContext(), p); err != nil {
			ctl.Log.Warn("could not delete stored object", zap.String("path", p), zap.Error(err))
		}
	}
}
