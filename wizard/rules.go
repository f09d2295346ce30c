package wizard

import (
	"fmt"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/documents"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
	"github.com/ahmed-abdelmageed/vise-services-sub001/utils"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// Rules evaluates the per-step guards. Now decides what "today" is.
type Rules struct {
	Now func() time.Time
}

func NewRules(now func() time.Time) Rules {
	if now == nil {
		now = time.Now
	}
	return Rules{Now: now}
}

// ParseTravelDate accepts a calendar date or an RFC 3339 timestamp.
func ParseTravelDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func blank(s string) bool { return s == "" }

// PersonalInfo returns the field errors of step 1.
func (r Rules) PersonalInfo(svc models.ServiceDefinition, f Form) map[string]string {
	errs := map[string]string{}

	if blank(f.FirstName) {
		errs["first_name"] = "required"
	}
	if blank(f.LastName) {
		errs["last_name"] = "required"
	}

	classChosen := false
	switch f.VisaType {
	case "":
		if svc.RequiresNationalitySelection {
			errs["visa_type"] = "required"
		}
	case models.NationalityGCC, models.NationalityOther:
		classChosen = true
	default:
		errs["visa_type"] = "oneof"
	}
	if (svc.RequiresNationalitySelection || classChosen) && blank(f.Nationality) {
		errs["nationality"] = "required"
	}
	if svc.RequiresMothersName && f.VisaType == models.NationalityGCC && blank(f.MothersName) {
		errs["mothers_name"] = "required"
	}

	if blank(f.TravelDate) {
		errs["travel_date"] = "required"
	} else if d, err := ParseTravelDate(f.TravelDate); err != nil {
		errs["travel_date"] = "date"
	} else if d.Format(dateLayout) < r.Now().Format(dateLayout) {
		errs["travel_date"] = "past"
	}

	if f.Adults < 1 {
		errs["adults"] = "min"
	}
	if f.Children < 0 {
		errs["children"] = "min"
	}
	if f.tooManyTravellers() {
		errs["travellers"] = "max"
		return errs
	}
	count := f.TravellerCount()
	if len(f.Travellers) > count {
		errs["travellers"] = "max"
	}
	for i := 0; i < count; i++ {
		var t models.Traveller
		if i < len(f.Travellers) {
			t = f.Travellers[i]
		}
		if blank(t.FullName) {
			errs[fmt.Sprintf("travellers[%d].full_name", i)] = "required"
		}
		if svc.RequiresSaudiIdIqama {
			key := fmt.Sprintf("travellers[%d].saudi_id_iqama", i)
			if blank(t.SaudiIdIqama) {
				errs[key] = "required"
			} else if err := validate.Var(t.SaudiIdIqama, "len=10,numeric"); err != nil {
				errs[key] = "len"
			}
		}
	}

	if svc.RequiresAppointmentTypeSelection || svc.HasAppointmentPricing() {
		if blank(f.AppointmentType) {
			errs["appointment_type"] = "required"
		} else if _, ok := svc.AppointmentType(f.AppointmentType); !ok && svc.HasAppointmentPricing() {
			errs["appointment_type"] = "oneof"
		}
	}
	if svc.RequiresLocationSelection {
		if blank(f.Location) {
			errs["location"] = "required"
		} else if len(svc.LocationOptions) > 0 && !svc.LocationOptions.Contains(f.Location) {
			errs["location"] = "oneof"
		}
	}
	if svc.RequiresVisaCitySelection {
		if blank(f.VisaCity) {
			errs["visa_city"] = "required"
		} else if len(svc.VisaCityOptions) > 0 && !svc.VisaCityOptions.Contains(f.VisaCity) {
			errs["visa_city"] = "oneof"
		}
	}
	return errs
}

// Documents returns the field errors of step 2: every traveller needs a
// passport and a photo that pass validation.
func (r Rules) Documents(f Form, docs *documents.Collector) map[string]string {
	errs := map[string]string{}
	if f.tooManyTravellers() {
		errs["travellers"] = "max"
		return errs
	}
	count := f.TravellerCount()
	if count < 1 {
		count = 1
	}
	for _, kind := range []string{models.FilePassport, models.FilePhoto} {
		for i := 0; i < count; i++ {
			key := documents.Slot{Kind: kind, TravellerIndex: i}.String()
			if docs == nil {
				errs[key] = "required"
				continue
			}
			a, ok := docs.Get(kind, i)
			if !ok {
				errs[key] = "required"
				continue
			}
			if err := documents.Validate(kind, a.File); err != nil {
				errs[key] = "invalid"
			}
		}
	}
	return errs
}

// Contact returns the field errors of step 3.
func (r Rules) Contact(f Form) map[string]string {
	errs := map[string]string{}
	if blank(f.Email) {
		errs["email"] = "required"
	} else if err := validate.Var(f.Email, "email"); err != nil {
		errs["email"] = "email"
	}
	if blank(f.Phone) {
		errs["phone"] = "required"
	} else if !utils.IsValidPhone(f.Phone) {
		errs["phone"] = "e164"
	}
	return errs
}

// Check runs the guard of a single step.
func (r Rules) Check(step Step, svc models.ServiceDefinition, f Form, docs *documents.Collector) error {
	var errs map[string]string
	switch step {
	case PersonalInfo:
		errs = r.PersonalInfo(svc, f)
	case DocumentUpload:
		errs = r.Documents(f, docs)
	case AccountAndSubmit:
		errs = r.Contact(f)
	default:
		return apperr.Invalid("wizard.Check", map[string]string{"step": "oneof"})
	}
	if len(errs) > 0 {
		return apperr.Invalid("wizard.Check", errs)
	}
	return nil
}

// CheckAll runs every step guard and merges the field errors.
func (r Rules) CheckAll(svc models.ServiceDefinition, f Form, docs *documents.Collector) error {
	errs := r.PersonalInfo(svc, f)
	for k, v := range r.Documents(f, docs) {
		errs[k] = v
	}
	for k, v := range r.Contact(f) {
		errs[k] = v
	}
	if len(errs) > 0 {
		return apperr.Invalid("wizard.CheckAll", errs)
	}
	return nil
}
