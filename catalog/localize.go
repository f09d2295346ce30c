package catalog

import (
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

const (
	LangEnglish = "en"
	LangArabic  = "ar"
)

var (
	supported = []language.Tag{language.English, language.Arabic}
	matcher   = language.NewMatcher(supported)
)

// ResolveLanguage picks "ar" or "en" from an explicit ?lang= value or an
// Accept-Language header. English is the default.
func ResolveLanguage(explicit, acceptLanguage string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		if tag, err := language.Parse(v); err == nil {
			_, idx, _ := matcher.Match(tag)
			return langCode(idx)
		}
	}
	if acceptLanguage == "" {
		return LangEnglish
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return LangEnglish
	}
	_, idx, _ := matcher.Match(tags...)
	return langCode(idx)
}

func langCode(idx int) string {
	if idx == 1 {
		return LangArabic
	}
	return LangEnglish
}

type AppointmentOption struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// View is a service projected into one language for public responses.
type View struct {
	Id              string          `json:"id"`
	Lang            string          `json:"lang"`
	Title           string          `json:"title"`
	FormTitle       string          `json:"form_title"`
	FormDescription string          `json:"form_description"`
	ProcessingTime  string          `json:"processing_time"`
	BasePrice       decimal.Decimal `json:"base_price"`
	DisplayOrder    int             `json:"display_order"`

	RequiresMothersName              bool `json:"requires_mothers_name"`
	RequiresNationalitySelection     bool `json:"requires_nationality_selection"`
	RequiresAppointmentTypeSelection bool `json:"requires_appointment_type_selection"`
	RequiresLocationSelection        bool `json:"requires_location_selection"`
	RequiresVisaCitySelection        bool `json:"requires_visa_city_selection"`
	RequiresSaudiIdIqama             bool `json:"requires_saudi_id_iqama"`

	AppointmentTypes []AppointmentOption `json:"appointment_types"`
	LocationOptions  []string            `json:"location_options"`
	VisaCityOptions  []string            `json:"visa_city_options"`
}

// pick prefers the Arabic text when asked for, falling back to English.
func pick(lang, en, ar string) string {
	if lang == LangArabic && strings.TrimSpace(ar) != "" {
		return ar
	}
	return en
}

func Localize(svc models.ServiceDefinition, lang string) View {
	v := View{
		Id:              svc.Id,
		Lang:            lang,
		Title:           pick(lang, svc.Title, svc.TitleAr),
		FormTitle:       pick(lang, svc.FormTitle, svc.FormTitleAr),
		FormDescription: pick(lang, svc.FormDescription, svc.FormDescriptionAr),
		ProcessingTime:  pick(lang, svc.ProcessingTime, svc.ProcessingTimeAr),
		BasePrice:       svc.BasePrice,
		DisplayOrder:    svc.DisplayOrder,

		RequiresMothersName:              svc.RequiresMothersName,
		RequiresNationalitySelection:     svc.RequiresNationalitySelection,
		RequiresAppointmentTypeSelection: svc.RequiresAppointmentTypeSelection,
		RequiresLocationSelection:        svc.RequiresLocationSelection,
		RequiresVisaCitySelection:        svc.RequiresVisaCitySelection,
		RequiresSaudiIdIqama:             svc.RequiresSaudiIdIqama,

		AppointmentTypes: make([]AppointmentOption, 0, len(svc.AppointmentTypes)),
		LocationOptions:  append([]string{}, svc.LocationOptions...),
		VisaCityOptions:  append([]string{}, svc.VisaCityOptions...),
	}
	for _, t := range svc.AppointmentTypes {
		v.AppointmentTypes = append(v.AppointmentTypes, AppointmentOption{
			ID:    t.ID,
			Name:  pick(lang, t.Name, t.NameAr),
			Price: t.Price,
		})
	}
	return v
}
