package wizard

import (
	"bytes"
	"testing"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/documents"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var today = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func fixedRules() Rules { return NewRules(func() time.Time { return today }) }

func gccService() models.ServiceDefinition {
	return models.ServiceDefinition{
		Id:                           "svc-1",
		Title:                        "Schengen Visa",
		BasePrice:                    decimal.NewFromInt(450),
		RequiresMothersName:          true,
		RequiresNationalitySelection: true,
	}
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, apperr.Validation, ae.Kind)
	return ae.Fields
}

func fillStepOne(w *Wizard) {
	w.Form.FirstName = "Sara"
	w.Form.LastName = "Ali"
	w.Form.VisaType = models.NationalityGCC
	w.Form.Nationality = "Saudi"
	w.Form.MothersName = "Huda Saleh"
	w.Form.TravelDate = "2026-03-10"
	for i := range w.Form.Travellers {
		w.Form.Travellers[i].FullName = "Traveller"
	}
}

func attachAll(t *testing.T, w *Wizard) {
	t.Helper()
	for i := 0; i < w.TravellerCount(); i++ {
		_, err := w.Docs.Attach(models.FilePassport, i, documents.File{Name: "p.pdf", Data: []byte("%PDF")})
		require.NoError(t, err)
		_, err = w.Docs.Attach(models.FilePhoto, i, documents.File{Name: "f.jpg", Data: []byte{0xff, 0xd8}})
		require.NoError(t, err)
	}
}

func TestHappyPathThroughAllSteps(t *testing.T) {
	w := New(gccService(), fixedRules())
	fillStepOne(w)

	require.NoError(t, w.Next())
	assert.Equal(t, DocumentUpload, w.Step())

	attachAll(t, w)
	require.NoError(t, w.Next())
	assert.Equal(t, AccountAndSubmit, w.Step())

	w.Form.Email = "Sara@Example.com "
	w.Form.Phone = "+966 50 123 4567"
	require.NoError(t, w.Ready())
	assert.Equal(t, "sara@example.com", w.Form.Email)
	assert.ErrorIs(t, w.Next(), ErrLastStep)
}

func TestStepOneBlocksMissingTravellerName(t *testing.T) {
	w := New(gccService(), fixedRules())
	fillStepOne(w)
	w.IncrementAdults()

	fields := fieldErrors(t, w.Next())

	assert.Equal(t, "required", fields["travellers[1].full_name"])
	assert.Equal(t, PersonalInfo, w.Step())
}

func TestStepOneMothersNameOnlyForGCC(t *testing.T) {
	w := New(gccService(), fixedRules())
	fillStepOne(w)
	w.Form.MothersName = " "

	fields := fieldErrors(t, w.Next())
	assert.Equal(t, "required", fields["mothers_name"])

	w.Form.VisaType = models.NationalityOther
	require.NoError(t, w.Next())
}

func TestStepOneRejectsPastTravelDate(t *testing.T) {
	w := New(gccService(), fixedRules())
	fillStepOne(w)

	w.Form.TravelDate = "2026-03-09"
	assert.Equal(t, "past", fieldErrors(t, w.Next())["travel_date"])

	w.Form.TravelDate = "next week"
	assert.Equal(t, "date", fieldErrors(t, w.Next())["travel_date"])

	w.Form.TravelDate = ""
	assert.Equal(t, "required", fieldErrors(t, w.Next())["travel_date"])
}

func TestNationalityHiddenUnlessFlaggedOrChosen(t *testing.T) {
	svc := models.ServiceDefinition{Id: "svc-2", Title: "UK Visa", BasePrice: decimal.NewFromInt(600)}
	w := New(svc, fixedRules())
	w.Form.FirstName, w.Form.LastName, w.Form.TravelDate = "Omar", "K", "2026-04-01"
	w.Form.Travellers[0].FullName = "Omar K"

	require.NoError(t, w.Next())

	w.Previous()
	w.Form.VisaType = models.NationalityOther
	assert.Equal(t, "required", fieldErrors(t, w.Next())["nationality"])

	w.Form.VisaType = "eu"
	assert.Equal(t, "oneof", fieldErrors(t, w.Next())["visa_type"])
}

func TestAppointmentAndLocationAreIndependent(t *testing.T) {
	svc := models.ServiceDefinition{
		Id:                               "svc-3",
		Title:                            "USA Visa",
		RequiresAppointmentTypeSelection: true,
		RequiresLocationSelection:        true,
		RequiresVisaCitySelection:        true,
		AppointmentTypes: datatypes.NewJSONSlice([]models.AppointmentType{
			{ID: "premium", Name: "Premium", Price: decimal.NewFromInt(150)},
		}),
		LocationOptions: models.StringList{"Riyadh"},
	}
	w := New(svc, fixedRules())
	w.Form.FirstName, w.Form.LastName, w.Form.TravelDate = "A", "B", "2026-05-01"
	w.Form.Travellers[0].FullName = "A B"

	fields := fieldErrors(t, w.Next())
	assert.Equal(t, "required", fields["appointment_type"])
	assert.Equal(t, "required", fields["location"])
	assert.Equal(t, "required", fields["visa_city"])

	w.Form.AppointmentType, w.Form.Location, w.Form.VisaCity = "vip", "Dammam", "Boston"
	fields = fieldErrors(t, w.Next())
	assert.Equal(t, "oneof", fields["appointment_type"])
	assert.Equal(t, "oneof", fields["location"])
	assert.NotContains(t, fields, "visa_city")

	w.Form.AppointmentType, w.Form.Location = "premium", "Riyadh"
	require.NoError(t, w.Next())
}

func TestSaudiIdPerTraveller(t *testing.T) {
	svc := gccService()
	svc.RequiresSaudiIdIqama = true
	w := New(svc, fixedRules())
	fillStepOne(w)
	w.IncrementChildren()
	w.Form.Travellers[1].FullName = "Kid"
	w.Form.Travellers[0].SaudiIdIqama = "1234567890"
	w.Form.Travellers[1].SaudiIdIqama = "12345"

	fields := fieldErrors(t, w.Next())
	assert.Equal(t, "len", fields["travellers[1].saudi_id_iqama"])
	assert.NotContains(t, fields, "travellers[0].saudi_id_iqama")
}

func TestStepTwoBlocksUntilEverySlotFilled(t *testing.T) {
	w := New(gccService(), fixedRules())
	w.IncrementAdults()
	fillStepOne(w)
	require.NoError(t, w.Next())

	_, err := w.Docs.Attach(models.FilePassport, 0, documents.File{Name: "p.pdf", Data: []byte("x")})
	require.NoError(t, err)

	fields := fieldErrors(t, w.Next())
	assert.Equal(t, DocumentUpload, w.Step())
	assert.NotContains(t, fields, "passport[0]")
	assert.Equal(t, "required", fields["photo[0]"])
	assert.Equal(t, "required", fields["passport[1]"])
	assert.Equal(t, "required", fields["photo[1]"])

	_, err = w.Docs.Attach(models.FilePassport, 1, documents.File{Name: "big.pdf", Data: bytes.Repeat([]byte{1}, 6<<20)})
	assert.ErrorIs(t, err, documents.ErrFileTooLarge)
	_, err = w.Docs.Attach(models.FilePhoto, 0, documents.File{Name: "me.gif", Data: []byte("GIF89a")})
	assert.ErrorIs(t, err, documents.ErrUnsupportedType)

	attachAll(t, w)
	require.NoError(t, w.Next())
}

func TestStepThreeContact(t *testing.T) {
	fields := NewRules(nil).Contact(Form{Email: "not-an-email", Phone: "12"})
	assert.Equal(t, "email", fields["email"])

	fields = NewRules(nil).Contact(Form{})
	assert.Equal(t, "required", fields["email"])
	assert.Equal(t, "required", fields["phone"])
}

func TestTravellerCountNeverBelowOne(t *testing.T) {
	w := New(gccService(), fixedRules())

	w.DecrementAdults()
	w.DecrementChildren()
	assert.Equal(t, 1, w.TravellerCount())

	w.IncrementAdults()
	w.IncrementChildren()
	assert.Equal(t, 3, w.TravellerCount())
	assert.Len(t, w.Form.Travellers, 3)

	w.SetTravellerCount(0, -2)
	assert.Equal(t, 1, w.TravellerCount())
	assert.Len(t, w.Form.Travellers, 1)
}

func TestTravellerCountIsCapped(t *testing.T) {
	w := New(gccService(), fixedRules())
	w.SetTravellerCount(MaxTravellers+5, 3)
	assert.Equal(t, MaxTravellers, w.TravellerCount())
	assert.Len(t, w.Form.Travellers, MaxTravellers)

	w.SetTravellerCount(15, 15)
	assert.Equal(t, 15, w.Form.Adults)
	assert.Equal(t, MaxTravellers-15, w.Form.Children)

	w.IncrementChildren()
	assert.Equal(t, MaxTravellers, w.TravellerCount())
}

func TestRulesRejectOversizedTravellerCount(t *testing.T) {
	rules := fixedRules()
	for _, f := range []Form{
		{Adults: 3_000_000},
		{Adults: 1, Children: MaxTravellers},
		{Adults: int(^uint(0) >> 1), Children: 1},
	} {
		personal := rules.PersonalInfo(gccService(), f)
		assert.Equal(t, "max", personal["travellers"])
		assert.Less(t, len(personal), 20)

		docs := rules.Documents(f, documents.NewCollector(1))
		assert.Equal(t, map[string]string{"travellers": "max"}, docs)
	}
}

func TestShrinkingDropsDocumentSlots(t *testing.T) {
	w := New(gccService(), fixedRules())
	w.SetTravellerCount(2, 0)
	attachAll(t, w)
	require.Len(t, w.Docs.Attachments(), 4)

	w.DecrementAdults()

	assert.Len(t, w.Docs.Attachments(), 2)
	_, ok := w.Docs.Get(models.FilePassport, 1)
	assert.False(t, ok)
}

func TestPreviousStopsAtFirstStep(t *testing.T) {
	w := New(gccService(), fixedRules())
	w.Previous()
	assert.Equal(t, PersonalInfo, w.Step())

	w = Restore(gccService(), fixedRules(), AccountAndSubmit, Form{Adults: 2}, nil)
	w.Previous()
	w.Previous()
	w.Previous()
	assert.Equal(t, PersonalInfo, w.Step())
	assert.Len(t, w.Form.Travellers, 2)
}
