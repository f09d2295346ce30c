package notify

import (
	"bytes"
	"html/template"

	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
)

type Confirmation struct {
	ApplicationId string
	ReferenceId   string
	Email         string
	FirstName     string
	LastName      string
	Country       string
	ServiceType   string
	TravelDate    string
	TotalPrice    string
	Currency      string
	Travellers    []models.Traveller
}

type TeamNotice struct {
	Confirmation
	Phone           string
	Nationality     string
	VisaType        string
	MothersName     string
	AppointmentType string
	Location        string
	VisaCity        string
	Adults          int
	Children        int
	Files           []models.FileRef
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif">
<h2>Thank you, {{.FirstName}} {{.LastName}}</h2>
<p>We received your {{.ServiceType}} application for {{.Country}}.</p>
<p>Reference: <strong>{{.ReferenceId}}</strong><br>
Travel date: {{.TravelDate}}<br>
Total: {{.TotalPrice}} {{.Currency}}</p>
{{if .Travellers}}<p>Travellers:</p><ul>{{range .Travellers}}<li>{{.FullName}}</li>{{end}}</ul>{{end}}
<hr>
<div dir="rtl">
<h2>شكراً لك، {{.FirstName}} {{.LastName}}</h2>
<p>تم استلام طلبك. رقم المرجع: <strong>{{.ReferenceId}}</strong></p>
</div>
</body></html>`))

var teamTmpl = template.Must(template.New("team").Parse(`<!doctype html>
<html><body style="font-family:Arial,sans-serif">
<h2>New application {{.ReferenceId}}</h2>
<table cellpadding="4">
<tr><td>Applicant</td><td>{{.FirstName}} {{.LastName}}</td></tr>
<tr><td>Email</td><td>{{.Email}}</td></tr>
<tr><td>Phone</td><td>{{.Phone}}</td></tr>
<tr><td>Service</td><td>{{.ServiceType}} ({{.Country}})</td></tr>
<tr><td>Nationality</td><td>{{.Nationality}} {{.VisaType}}</td></tr>
{{if .MothersName}}<tr><td>Mother's name</td><td>{{.MothersName}}</td></tr>{{end}}
{{if .AppointmentType}}<tr><td>Appointment</td><td>{{.AppointmentType}}</td></tr>{{end}}
{{if .Location}}<tr><td>Location</td><td>{{.Location}}</td></tr>{{end}}
{{if .VisaCity}}<tr><td>Visa city</td><td>{{.VisaCity}}</td></tr>{{end}}
<tr><td>Travel date</td><td>{{.TravelDate}}</td></tr>
<tr><td>Travellers</td><td>{{.Adults}} adults, {{.Children}} children</td></tr>
<tr><td>Total</td><td>{{.TotalPrice}} {{.Currency}}</td></tr>
</table>
<ol>{{range .Travellers}}<li>{{.FullName}}{{if .SaudiIdIqama}} ({{.SaudiIdIqama}}){{end}}</li>{{end}}</ol>
<p>Files:</p>
<ul>{{range .Files}}<li>{{.Type}} #{{.TravellerIndex}}: {{if .LocalOnly}}{{.Name}} (upload failed){{else}}<a href="{{.URL}}">{{.Name}}</a>{{end}}</li>{{end}}</ul>
</body></html>`))

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
