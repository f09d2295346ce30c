// Package catalog serves the visa service definitions. Reads go through an
// immutable snapshot that is rebuilt after every admin write.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ahmed-abdelmageed/vise-services-sub001/apperr"
	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

type snapshot struct {
	byID    map[string]models.ServiceDefinition
	byTitle map[string]string // folded title -> id
	active  []models.ServiceDefinition
}

type Catalog struct {
	db   *gorm.DB
	snap atomic.Pointer[snapshot]
}

func New(db *gorm.DB) *Catalog {
	c := &Catalog{db: db}
	c.snap.Store(build(nil))
	return c
}

var fold = cases.Fold()

func titleKey(title string) string {
	return fold.String(strings.TrimSpace(title))
}

func build(rows []models.ServiceDefinition) *snapshot {
	s := &snapshot{
		byID:    make(map[string]models.ServiceDefinition, len(rows)),
		byTitle: make(map[string]string, len(rows)),
	}
	for _, r := range rows {
		s.byID[r.Id] = r
		s.byTitle[titleKey(r.Title)] = r.Id
		if r.Active {
			s.active = append(s.active, r)
		}
	}
	sort.SliceStable(s.active, func(i, j int) bool {
		if s.active[i].DisplayOrder != s.active[j].DisplayOrder {
			return s.active[i].DisplayOrder < s.active[j].DisplayOrder
		}
		return s.active[i].Title < s.active[j].Title
	})
	return s
}

// Reload reads every service and swaps the snapshot in one step.
func (c *Catalog) Reload(ctx context.Context) error {
	var rows []models.ServiceDefinition
	if err := c.db.WithContext(ctx).Order("display_order ASC, title ASC").Find(&rows).Error; err != nil {
		return apperr.Wrap(apperr.Persistence, "catalog.Reload", err, "could not load services")
	}
	c.snap.Store(build(rows))
	return nil
}

// Get resolves a service by id, falling back to a case-insensitive title match.
// Inactive services are still returned.
func (c *Catalog) Get(idOrTitle string) (models.ServiceDefinition, error) {
	s := c.snap.Load()
	key := strings.TrimSpace(idOrTitle)
	if svc, ok := s.byID[key]; ok {
		return svc, nil
	}
	if id, ok := s.byTitle[titleKey(key)]; ok {
		return s.byID[id], nil
	}
	return models.ServiceDefinition{}, apperr.New(apperr.NotFound, "catalog.Get", "service not found")
}

// Active lists the public catalog ordered by display order, then title.
func (c *Catalog) Active() []models.ServiceDefinition {
	active := c.snap.Load().active
	out := make([]models.ServiceDefinition, len(active))
	copy(out, active)
	return out
}

// All lists every service, inactive ones included.
func (c *Catalog) All() []models.ServiceDefinition {
	s := c.snap.Load()
	out := make([]models.ServiceDefinition, 0, len(s.byID))
	for _, svc := range s.byID {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Title < out[j].Title
	})
	return out
}

func (c *Catalog) Create(ctx context.Context, svc *models.ServiceDefinition) error {
	if svc.BasePrice.IsNegative() {
		return apperr.Invalid("catalog.Create", map[string]string{"base_price": "gte"})
	}
	svc.Version = 0
	if err := c.db.WithContext(ctx).Create(svc).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperr.Wrap(apperr.Conflict, "catalog.Create", err, "a service with this title already exists")
		}
		return apperr.Wrap(apperr.Persistence, "catalog.Create", err, "could not create service")
	}
	return c.Reload(ctx)
}

// Update applies a column patch. When expectedVersion is set the write only
// lands if the row still has that version; otherwise the last write wins.
func (c *Catalog) Update(ctx context.Context, id string, patch map[string]any, expectedVersion *int) (models.ServiceDefinition, error) {
	const op = "catalog.Update"
	if v, ok := patch["base_price"]; ok {
		if d, ok := v.(interface{ IsNegative() bool }); ok && d.IsNegative() {
			return models.ServiceDefinition{}, apperr.Invalid(op, map[string]string{"base_price": "gte"})
		}
	}
	delete(patch, "id")
	delete(patch, "version")
	patch["version"] = gorm.Expr("version + 1")

	q := c.db.WithContext(ctx).Model(&models.ServiceDefinition{}).Where("id = ?", id)
	if expectedVersion != nil {
		q = q.Where("version = ?", *expectedVersion)
	}
	res := q.Updates(patch)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return models.ServiceDefinition{}, apperr.Wrap(apperr.Conflict, op, res.Error, "a service with this title already exists")
		}
		return models.ServiceDefinition{}, apperr.Wrap(apperr.Persistence, op, res.Error, "could not update service")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := c.db.WithContext(ctx).Model(&models.ServiceDefinition{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return models.ServiceDefinition{}, apperr.Wrap(apperr.Persistence, op, err, "could not update service")
		}
		if count == 0 {
			return models.ServiceDefinition{}, apperr.New(apperr.NotFound, op, "service not found")
		}
		return models.ServiceDefinition{}, apperr.New(apperr.Conflict, op, "service was modified by someone else, reload and retry")
	}

	if err := c.Reload(ctx); err != nil {
		return models.ServiceDefinition{}, err
	}
	return c.Get(id)
}

// Disable hides a service from the public catalog. Services are never deleted
// because applications keep referring to them.
func (c *Catalog) Disable(ctx context.Context, id string) error {
	_, err := c.Update(ctx, id, map[string]any{"active": false}, nil)
	return err
}
