// Package wizard implements the three-step application form: the field rules
// each step enforces and the Next/Previous navigation between steps.
package wizard

import (
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
)

type Step int

const (
	PersonalInfo     Step = 1
	DocumentUpload   Step = 2
	AccountAndSubmit Step = 3
)

func (s Step) Valid() bool { return s >= PersonalInfo && s <= AccountAndSubmit }

func (s Step) String() string {
	switch s {
	case PersonalInfo:
		return "personal_info"
	case DocumentUpload:
		return "document_upload"
	case AccountAndSubmit:
		return "account_and_submit"
	}
	return "unknown"
}

// MaxTravellers bounds adults plus children on one application.
const MaxTravellers = 20

// Form is everything the applicant types in. Files travel separately.
type Form struct {
	ServiceId       string             `json:"service_id" form:"service_id"`
	FirstName       string             `json:"first_name" form:"first_name"`
	LastName        string             `json:"last_name" form:"last_name"`
	Email           string             `json:"email" form:"email"`
	Phone           string             `json:"phone" form:"phone"`
	VisaType        string             `json:"visa_type" form:"visa_type"`
	Nationality     string             `json:"nationality" form:"nationality"`
	MothersName     string             `json:"mothers_name" form:"mothers_name"`
	TravelDate      string             `json:"travel_date" form:"travel_date"`
	Adults          int                `json:"adults" form:"adults"`
	Children        int                `json:"children" form:"children"`
	Travellers      []models.Traveller `json:"travellers" form:"-"`
	AppointmentType string             `json:"appointment_type" form:"appointment_type"`
	Location        string             `json:"location" form:"location"`
	VisaCity        string             `json:"visa_city" form:"visa_city"`
}

func (f *Form) TravellerCount() int { return f.Adults + f.Children }

// tooManyTravellers also catches counts large enough to overflow the sum.
func (f *Form) tooManyTravellers() bool {
	return f.Adults > MaxTravellers || f.Children > MaxTravellers || f.TravellerCount() > MaxTravellers
}

// clampTravellers keeps adults in [1, MaxTravellers] and the total within MaxTravellers.
func (f *Form) clampTravellers() {
	f.Adults = min(max(f.Adults, 1), MaxTravellers)
	f.Children = min(max(f.Children, 0), MaxTravellers-f.Adults)
}

// Normalize trims every free-text field in place.
func (f *Form) Normalize() {
	for _, p := range []*string{
		&f.ServiceId, &f.FirstName, &f.LastName, &f.Email, &f.Phone, &f.VisaType,
		&f.Nationality, &f.MothersName, &f.TravelDate, &f.AppointmentType, &f.Location, &f.VisaCity,
	} {
		*p = strings.TrimSpace(*p)
	}
	f.Email = strings.ToLower(f.Email)
	f.VisaType = strings.ToLower(f.VisaType)
	for i := range f.Travellers {
		f.Travellers[i].FullName = strings.TrimSpace(f.Travellers[i].FullName)
		f.Travellers[i].SaudiIdIqama = strings.TrimSpace(f.Travellers[i].SaudiIdIqama)
	}
}

// resizeTravellers keeps exactly n traveller entries.
func (f *Form) resizeTravellers(n int) {
	switch {
	case len(f.Travellers) > n:
		f.Travellers = f.Travellers[:n]
	case len(f.Travellers) < n:
		f.Travellers = append(f.Travellers, make([]models.Traveller, n-len(f.Travellers))...)
	}
}
