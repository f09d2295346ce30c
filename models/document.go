package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientDocument is a file an administrator hands back to the applicant.
type ClientDocument struct {
	Id            string    `json:"id" gorm:"primaryKey;size:36"`
	ApplicationId string    `json:"application_id" gorm:"size:36;not null;index"`
	Name          string    `json:"name" gorm:"not null"`
	Path          string    `json:"path"`
	URL           string    `json:"url"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

func (ClientDocument) TableName() string { return "client_documents" }

func (d *ClientDocument) BeforeCreate(tx *gorm.DB) (err error) {
	if d.Id == "" {
		d.Id = uuid.NewString()
	}
	return
}
