package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NationalityGCC   = "gcc"
	NationalityOther = "other"
)

const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusRejected   = "Rejected"
)

// Email delivery state of the applicant confirmation. Empty means not yet attempted.
const (
	EmailStatusSent                = "sent"
	EmailStatusPendingVerification = "pending_verification"
)

const (
	FilePassport = "passport"
	FilePhoto    = "photo"
)

type Traveller struct {
	FullName     string `json:"full_name"`
	SaudiIdIqama string `json:"saudi_id_iqama,omitempty"`
}

// FileRef is one stored attachment. LocalOnly marks an upload that failed
// and was kept as a client-side preview only.
type FileRef struct {
	Path           string    `json:"path"`
	URL            string    `json:"url"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	Size           int64     `json:"size"`
	UploadedAt     time.Time `json:"uploaded_at"`
	TravellerIndex int       `json:"traveller_index"`
	LocalOnly      bool      `json:"local_only,omitempty"`
}

type VisaApplication struct {
	Id          string `json:"id" gorm:"primaryKey;size:36"`
	ReferenceId string `json:"reference_id" gorm:"<-:create;size:32;not null;uniqueIndex"`

	FirstName string `json:"first_name" gorm:"not null"`
	LastName  string `json:"last_name" gorm:"not null"`
	Email     string `json:"email" gorm:"not null;index"`
	Phone     string `json:"phone"`

	Country         string  `json:"country"`
	ServiceId       *string `json:"service_id" gorm:"size:36;index"`
	ServiceType     string  `json:"service_type"`
	VisaType        *string `json:"visa_type" gorm:"size:10"`
	Nationality     string  `json:"nationality"`
	MothersName     string  `json:"mothers_name"`
	AppointmentType string  `json:"appointment_type"`
	Location        string  `json:"location"`
	VisaCity        string  `json:"visa_city"`

	TravelDate time.Time                      `json:"travel_date" gorm:"type:date"`
	Adults     int                            `json:"adults" gorm:"not null"`
	Children   int                            `json:"children"`
	Travellers datatypes.JSONSlice[Traveller] `json:"travellers"`

	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:numeric(12,2);not null"`
	Currency   string          `json:"currency" gorm:"size:3"`
	Status     string          `json:"status" gorm:"size:32;not null;index"`

	PassportFiles datatypes.JSONSlice[FileRef] `json:"passport_files"`
	PhotoFiles    datatypes.JSONSlice[FileRef] `json:"photo_files"`

	EmailSent     bool   `json:"email_sent"`
	EmailStatus   string `json:"email_status" gorm:"size:32;index"`
	EmailAttempts int    `json:"email_attempts"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *VisaApplication) BeforeCreate(tx *gorm.DB) (err error) {
	if a.Id == "" {
		a.Id = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	return
}

func (a *VisaApplication) TravellerCount() int { return a.Adults + a.Children }

// Files returns the file list for kind, or nil for an unknown kind.
func (a *VisaApplication) Files(kind string) *datatypes.JSONSlice[FileRef] {
	switch kind {
	case FilePassport:
		return &a.PassportFiles
	case FilePhoto:
		return &a.PhotoFiles
	}
	return nil
}
