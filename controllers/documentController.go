package controllers

import (
	"bytes"
	"errors"
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/database"
	"github.com/ahmed-abdelmageed/vise-services-sub001/middlewares"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/storage"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const maxClientDocument = 10 << 20

// UploadClientDocument stores a file an admin hands back to the applicant.
func (ctl *Controller) UploadClientDocument(c *fiber.Ctx) error {
	const op = "controllers.UploadClientDocument"
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	app, err := loadApplication(db, param(c, "id"))
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Invalid(op, map[string]string{"file": "required"})
	}
	if fh.Size > maxClientDocument {
		return apperr.Invalid(op, map[string]string{"file": "file_too_large"})
	}
	f, err := readFile(fh)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "could not read uploaded file")
	}
	if f.Size() == 0 {
		return apperr.Invalid(op, map[string]string{"file": "required"})
	}
	name := strings.TrimSpace(c.FormValue("name"))
	if name == "" {
		name = fh.Filename
	}

	now := ctl.now().UTC()
	key := storage.DocumentKey(app.Id, fh.Filename, now)
	url, err := ctl.Bucket.Upload(c.UserContext(), key, f.ContentType, bytes.NewReader(f.Data))
	if err != nil {
		return apperr.Wrap(apperr.Storage, op, err, "could not store document")
	}

	doc := models.ClientDocument{
		ApplicationId: app.Id,
		Name:          name,
		Path:          key,
		URL:           url,
		ContentType:   f.ContentType,
		Size:          f.Size(),
		UploadedAt:    now,
	}
	if err := db.Create(&doc).Error; err != nil {
		ctl.deleteObjects(c, []string{key})
		return apperr.Wrap(apperr.Persistence, op, err, "could not save document")
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// GetClientDocuments is open to admins and to the client who owns the
// application.
func (ctl *Controller) GetClientDocuments(c *fiber.Ctx) error {
	const op = "controllers.GetClientDocuments"
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	app, err := loadApplication(db, param(c, "id"))
	if err != nil {
		return err
	}
	if middlewares.Role(c) != middlewares.RoleAdmin && !strings.EqualFold(app.Email, middlewares.UserEmail(c)) {
		return apperr.New(apperr.NotFound, op, "application not found")
	}
	var docs []models.ClientDocument
	if err := db.Where("application_id = ?", app.Id).Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not list documents")
	}
	return c.JSON(fiber.Map{
		"documents": docs,
		"message":   "success",
	})
}

func (ctl *Controller) DeleteClientDocument(c *fiber.Ctx) error {
	const op = "controllers.DeleteClientDocument"
	db, err := database.GetDB(c)
	if err != nil {
		return err
	}
	var doc models.ClientDocument
	if err := db.First(&doc, "id = ?", param(c, "id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.NotFound, op, "document not found")
		}
		return apperr.Wrap(apperr.Persistence, op, err, "could not load document")
	}
	if err := db.Delete(&doc).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, op, err, "could not delete document")
	}
	if doc.Path != "" {
		ctl.deleteObjects(c, []string{doc.Path})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
