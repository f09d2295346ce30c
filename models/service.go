package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AppointmentType is a fixed-price tier that replaces per-traveller pricing.
type AppointmentType struct {
	ID     string          `json:"id" validate:"required"`
	Name   string          `json:"name" validate:"required"`
	NameAr string          `json:"name_ar"`
	Price  decimal.Decimal `json:"price"`
}

// ServiceDefinition is one destination/visa product of the catalog.
// Rows are never hard-deleted; Active=false hides them from the public list.
type ServiceDefinition struct {
	Id                string `json:"id" gorm:"primaryKey;size:36"`
	Title             string `json:"title" gorm:"not null;uniqueIndex"`
	TitleAr           string `json:"title_ar"`
	FormTitle         string `json:"form_title"`
	FormTitleAr       string `json:"form_title_ar"`
	FormDescription   string `json:"form_description"`
	FormDescriptionAr string `json:"form_description_ar"`
	ProcessingTime    string `json:"processing_time"`
	ProcessingTimeAr  string `json:"processing_time_ar"`

	BasePrice    decimal.Decimal `json:"base_price" gorm:"type:numeric(12,2);not null"`
	Active       bool            `json:"active"`
	DisplayOrder int             `json:"display_order" gorm:"index"`

	RequiresMothersName              bool `json:"requires_mothers_name"`
	RequiresNationalitySelection     bool `json:"requires_nationality_selection"`
	RequiresAppointmentTypeSelection bool `json:"requires_appointment_type_selection"`
	RequiresLocationSelection        bool `json:"requires_location_selection"`
	RequiresVisaCitySelection        bool `json:"requires_visa_city_selection"`
	RequiresSaudiIdIqama             bool `json:"requires_saudi_id_iqama"`

	AppointmentTypes datatypes.JSONSlice[AppointmentType] `json:"appointment_types"`
	LocationOptions  StringList                           `json:"location_options"`
	VisaCityOptions  StringList                           `json:"visa_city_options"`

	Version   int       `json:"version" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ServiceDefinition) TableName() string { return "visa_services" }

func (s *ServiceDefinition) BeforeCreate(tx *gorm.DB) (err error) {
	if s.Id == "" {
		s.Id = uuid.NewString()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	return
}

// HasAppointmentPricing reports whether price comes from an appointment tier.
func (s *ServiceDefinition) HasAppointmentPricing() bool {
	return len(s.AppointmentTypes) > 0
}

func (s *ServiceDefinition) AppointmentType(id string) (AppointmentType, bool) {
	for _, t := range s.AppointmentTypes {
		if t.ID == id {
			return t, true
		}
	}
	return AppointmentType{}, false
}
