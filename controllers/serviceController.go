package controllers

import (
	"github.com/ahmed-abdelmageed/vise-services-sub001/catalog"
	"github.com/ahmed-abdelmageed/vise-services-sub001/middlewares"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ServiceInput struct {
	Title             string          `json:"title" validate:"required,max=255"`
	TitleAr           string          `json:"title_ar"`
	FormTitle         string          `json:"form_title"`
	FormTitleAr       string          `json:"form_title_ar"`
	FormDescription   string          `json:"form_description"`
	FormDescriptionAr string          `json:"form_description_ar"`
	ProcessingTime    string          `json:"processing_time"`
	ProcessingTimeAr  string          `json:"processing_time_ar"`
	BasePrice         decimal.Decimal `json:"base_price"`
	Active            *bool           `json:"active"`
	DisplayOrder      int             `json:"display_order"`

	RequiresMothersName              bool `json:"requires_mothers_name"`
	RequiresNationalitySelection     bool `json:"requires_nationality_selection"`
	RequiresAppointmentTypeSelection bool `json:"requires_appointment_type_selection"`
	RequiresLocationSelection        bool `json:"requires_location_selection"`
	RequiresVisaCitySelection        bool `json:"requires_visa_city_selection"`
	RequiresSaudiIdIqama             bool `json:"requires_saudi_id_iqama"`

	AppointmentTypes []models.AppointmentType `json:"appointment_types" validate:"dive"`
	LocationOptions  []string                 `json:"location_options"`
	VisaCityOptions  []string                 `json:"visa_city_options"`
}

// ServicePatch only touches the fields that are present. Version enables
// optimistic concurrency; without it the last write wins.
type ServicePatch struct {
	Title             *string          `json:"title" validate:"omitempty,min=1,max=255"`
	TitleAr           *string          `json:"title_ar"`
	FormTitle         *string          `json:"form_title"`
	FormTitleAr       *string          `json:"form_title_ar"`
	FormDescription   *string          `json:"form_description"`
	FormDescriptionAr *string          `json:"form_description_ar"`
	ProcessingTime    *string          `json:"processing_time"`
	ProcessingTimeAr  *string          `json:"processing_time_ar"`
	BasePrice         *decimal.Decimal `json:"base_price"`
	Active            *bool            `json:"active"`
	DisplayOrder      *int             `json:"display_order"`

	RequiresMothersName              *bool `json:"requires_mothers_name"`
	RequiresNationalitySelection     *bool `json:"requires_nationality_selection"`
	RequiresAppointmentTypeSelection *bool `json:"requires_appointment_type_selection"`
	RequiresLocationSelection        *bool `json:"requires_location_selection"`
	RequiresVisaCitySelection        *bool `json:"requires_visa_city_selection"`
	RequiresSaudiIdIqama             *bool `json:"requires_saudi_id_iqama"`

	AppointmentTypes *datatypes.JSONSlice[models.AppointmentType] `json:"appointment_types"`
	LocationOptions  *models.StringList                           `json:"location_options"`
	VisaCityOptions  *models.StringList                           `json:"visa_city_options"`

	Version *int `json:"version"`
}

func (ctl *Controller) GetServices(c *fiber.Ctx) error {
	l := lang(c)
	active := ctl.Catalog.Active()
	out := make([]catalog.View, 0, len(active))
	for _, svc := range active {
		out = append(out, catalog.Localize(svc, l))
	}
	return c.JSON(fiber.Map{
		"services": out,
		"message":  "success",
	})
}

func (ctl *Controller) GetService(c *fiber.Ctx) error {
	svc, err := ctl.Catalog.Get(param(c, "id"))
	if err != nil {
		return err
	}
	return c.JSON(catalog.Localize(svc, lang(c)))
}

type QuoteInput struct {
	Adults          int    `json:"adults" validate:"min=1"`
	Children        int    `json:"children" validate:"min=0"`
	AppointmentType string `json:"appointment_type"`
}

func (ctl *Controller) QuoteService(c *fiber.Ctx) error {
	var in QuoteInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	svc, err := ctl.Catalog.Get(param(c, "id"))
	if err != nil {
		return err
	}
	total, err := catalog.ComputePrice(svc, in.Adults+in.Children, in.AppointmentType)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"service_id":  svc.Id,
		"travellers":  in.Adults + in.Children,
		"total_price": utils.Amount(total),
		"currency":    ctl.Currency,
	})
}

func (ctl *Controller) AdminGetServices(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"services": ctl.Catalog.All(),
		"message":  "success",
	})
}

func (ctl *Controller) CreateService(c *fiber.Ctx) error {
	var in ServiceInput
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizeDTO(&in)

	svc := models.ServiceDefinition{
		Title:             in.Title,
		TitleAr:           in.TitleAr,
		FormTitle:         in.FormTitle,
		FormTitleAr:       in.FormTitleAr,
		FormDescription:   in.FormDescription,
		FormDescriptionAr: in.FormDescriptionAr,
		ProcessingTime:    in.ProcessingTime,
		ProcessingTimeAr:  in.ProcessingTimeAr,
		BasePrice:         in.BasePrice,
		Active:            in.Active == nil || *in.Active,
		DisplayOrder:      in.DisplayOrder,

		RequiresMothersName:              in.RequiresMothersName,
		RequiresNationalitySelection:     in.RequiresNationalitySelection,
		RequiresAppointmentTypeSelection: in.RequiresAppointmentTypeSelection,
		RequiresLocationSelection:        in.RequiresLocationSelection,
		RequiresVisaCitySelection:        in.RequiresVisaCitySelection,
		RequiresSaudiIdIqama:             in.RequiresSaudiIdIqama,

		AppointmentTypes: datatypes.NewJSONSlice(in.AppointmentTypes),
		LocationOptions:  models.StringList(in.LocationOptions),
		VisaCityOptions:  models.StringList(in.VisaCityOptions),
	}
	if err := ctl.Catalog.Create(c.UserContext(), &svc); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(svc)
}

func (ctl *Controller) UpdateService(c *fiber.Ctx) error {
	var in ServicePatch
	if err := middlewares.BindAndValidate(c, &in); err != nil {
		return err
	}
	utils.NormalizePtrDTO(&in)
	if in.AppointmentTypes != nil {
		for _, t := range *in.AppointmentTypes {
			if err := middlewares.ValidateStruct(t); err != nil {
				return err
			}
		}
	}

	patch := utils.UpdatesFromPtrDTO(&in, nil)
	svc, err := ctl.Catalog.Update(c.UserContext(), param(c, "id"), patch, in.Version)
	if err != nil {
		return err
	}
	return c.JSON(svc)
}

func (ctl *Controller) DisableService(c *fiber.Ctx) error {
	if err := ctl.Catalog.Disable(c.UserContext(), param(c, "id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
