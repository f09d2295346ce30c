// Package storage puts application files into the object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Bucket is the object-store surface the workflows need.
type Bucket interface {
	Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// ApplicationKey is the object key of one application file:
// {applicationId}/{fileType}_{travellerIndex}_{unixMillis}{ext}.
func ApplicationKey(applicationID, kind string, travellerIndex int, at time.Time, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return fmt.Sprintf("%s/%s_%d_%d%s", applicationID, kind, travellerIndex, at.UnixMilli(), ext)
}

// DocumentKey is the object key of a document an admin attaches to an application.
func DocumentKey(applicationID, name string, at time.Time) string {
	return fmt.Sprintf("%s/documents/%d_%s", applicationID, at.UnixMilli(), slugify(name))
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-':
			return r
		case r == ' ' || r == '_':
			return '-'
		}
		return -1
	}, s)
	if s == "" || s == "." {
		return "file"
	}
	return s
}

var ErrNotConfigured = errors.New("object storage not configured")

// Disabled is used when no bucket is configured. Uploads fail, so submissions
// keep their files as local-only entries.
type Disabled struct{}

func (Disabled) Upload(context.Context, string, string, io.Reader) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Delete(context.Context, string) error { return ErrNotConfigured }

func (Disabled) PublicURL(string) string { return "" }
