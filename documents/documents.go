// Package documents collects the per-traveller passport and photo uploads of
// one application until it is submitted.
package documents

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"
)

var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrInvalidTraveller = errors.New("invalid traveller index")
	ErrUnknownKind      = errors.New("unknown document kind")
	ErrEmptyFile        = errors.New("empty file")
)

const mb = 1 << 20

// Rule is the allow-list for one document kind.
type Rule struct {
	MaxSize    int64
	Extensions []string
}

var Rules = map[string]Rule{
	models.FilePassport: {MaxSize: 5 * mb, Extensions: []string{".pdf", ".jpg", ".jpeg", ".png"}},
	models.FilePhoto:    {MaxSize: 2 * mb, Extensions: []string{".jpg", ".jpeg", ".png"}},
}

// File is an upload held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Size() int64 { return int64(len(f.Data)) }

// Ext is the lower-cased extension including the dot.
func (f File) Ext() string { return strings.ToLower(filepath.Ext(f.Name)) }

type Attachment struct {
	Kind           string
	TravellerIndex int
	File           File
}

type Slot struct {
	Kind           string
	TravellerIndex int
}

func (s Slot) String() string {
	if s.TravellerIndex < 0 {
		return s.Kind
	}
	return fmt.Sprintf("%s[%d]", s.Kind, s.TravellerIndex)
}

// Collector holds at most one file per (kind, traveller) slot. It is not safe
// for concurrent mutation.
type Collector struct {
	travellers int
	slots      map[Slot]*Attachment
}

func NewCollector(travellerCount int) *Collector {
	if travellerCount < 1 {
		travellerCount = 1
	}
	return &Collector{travellers: travellerCount, slots: map[Slot]*Attachment{}}
}

func (c *Collector) TravellerCount() int { return c.travellers }

func invalid(slot Slot, code string, cause error) error {
	return &apperr.Error{
		Kind:    apperr.Validation,
		Op:      "documents.Attach",
		Message: cause.Error(),
		Fields:  map[string]string{slot.String(): code},
		Err:     cause,
	}
}

// Validate checks a file against the rule for kind without storing it.
func Validate(kind string, f File) error {
	return check(Slot{Kind: kind, TravellerIndex: -1}, f)
}

func check(slot Slot, f File) error {
	rule, ok := Rules[slot.Kind]
	if !ok {
		return invalid(slot, "oneof", ErrUnknownKind)
	}
	if f.Size() == 0 {
		return invalid(slot, "required", ErrEmptyFile)
	}
	allowed := false
	for _, ext := range rule.Extensions {
		if f.Ext() == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return invalid(slot, "unsupported_type", ErrUnsupportedType)
	}
	if f.Size() > rule.MaxSize {
		return invalid(slot, "file_too_large", ErrFileTooLarge)
	}
	return nil
}

// Attach validates f and stores it in the slot, replacing any previous file.
func (c *Collector) Attach(kind string, travellerIndex int, f File) (Attachment, error) {
	slot := Slot{Kind: kind, TravellerIndex: travellerIndex}
	if travellerIndex < 0 || travellerIndex >= c.travellers {
		return Attachment{}, invalid(slot, "invalid_traveller", ErrInvalidTraveller)
	}
	if err := check(slot, f); err != nil {
		return Attachment{}, err
	}
	if f.ContentType == "" || f.ContentType == "application/octet-stream" {
		f.ContentType = detectContentType(f)
	}

	c.release(slot)
	a := &Attachment{Kind: kind, TravellerIndex: travellerIndex, File: f}
	c.slots[slot] = a
	return *a, nil
}

// Remove clears a slot. Removing an empty slot is a no-op.
func (c *Collector) Remove(kind string, travellerIndex int) {
	c.release(Slot{Kind: kind, TravellerIndex: travellerIndex})
}

func (c *Collector) release(slot Slot) {
	if prev, ok := c.slots[slot]; ok {
		prev.File.Data = nil
		delete(c.slots, slot)
	}
}

// Resize changes the traveller count and drops the slots of removed travellers.
func (c *Collector) Resize(travellerCount int) {
	if travellerCount < 1 {
		travellerCount = 1
	}
	c.travellers = travellerCount
	for slot := range c.slots {
		if slot.TravellerIndex >= travellerCount {
			c.release(slot)
		}
	}
}

func (c *Collector) Get(kind string, travellerIndex int) (Attachment, bool) {
	a, ok := c.slots[Slot{Kind: kind, TravellerIndex: travellerIndex}]
	if !ok {
		return Attachment{}, false
	}
	return *a, true
}

// Missing lists the empty slots, passports first.
func (c *Collector) Missing() []Slot {
	var out []Slot
	for _, kind := range []string{models.FilePassport, models.FilePhoto} {
		for i := 0; i < c.travellers; i++ {
			if _, ok := c.slots[Slot{Kind: kind, TravellerIndex: i}]; !ok {
				out = append(out, Slot{Kind: kind, TravellerIndex: i})
			}
		}
	}
	return out
}

// Attachments returns every stored file ordered by kind then traveller.
func (c *Collector) Attachments() []Attachment {
	out := make([]Attachment, 0, len(c.slots))
	for _, a := range c.slots {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].TravellerIndex < out[j].TravellerIndex
	})
	return out
}

func detectContentType(f File) string {
	if ct := mime.TypeByExtension(f.Ext()); ct != "" {
		return ct
	}
	head := f.Data
	if len(head) > 512 {
		head = head[:512]
	}
	return http.DetectContentType(head)
}
