package controllers

import (
	"net/url"
	"strings"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/billing"
	"github.com/ahmed-abdelmageed/vise-services-sub001/catalog"
	"github.com/ahmed-abdelmageed/vise-services-sub001/drafts"
	"github.com/ahmed-abdelmageed/vise-services-sub001/payment"
	"github.com/ahmed-abdelmageed/vise-services-sub001/storage"
	"github.com/ahmed-abdelmageed/vise-services-sub001/submission"
	"github.com/ahmed-abdelmageed/vise-services-sub001/utils"
	"github.com/ahmed-abdelmageed/vise-services-sub001/wizard"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OrderIDs interface {
	Order() string
}

// Controller carries the dependencies of every HTTP handler.
type Controller struct {
	DB         *gorm.DB
	Catalog    *catalog.Catalog
	Rules      wizard.Rules
	Assembler  *submission.Assembler
	Billing    *billing.Service
	Initiator  *payment.Initiator
	Reconciler *payment.Reconciler
	Orders     OrderIDs
	Bucket     storage.Bucket
	// Drafts is nil when Redis is not configured.
	Drafts   *drafts.Store
	Currency string
	Log      *zap.Logger
	Now      func() time.Time
}

func (ctl *Controller) now() time.Time {
	if ctl.Now != nil {
		return ctl.Now()
	}
	return time.Now()
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// lang resolves the response language from ?lang= and Accept-Language.
func lang(c *fiber.Ctx) string {
	return catalog.ResolveLanguage(c.Query("lang"), c.Get(fiber.HeaderAcceptLanguage))
}

func pagination(c *fiber.Ctx) (page, limit int) {
	page = utils.ParseIntDefault(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit = utils.ParseIntDefault(c.Query("limit"), 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// param returns the unescaped route parameter; services can be addressed by
// title, which may contain spaces.
func param(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if v, err := url.PathUnescape(raw); err == nil {
		raw = v
	}
	return strings.TrimSpace(raw)
}
