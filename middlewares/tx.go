package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestTx opens a per-request DB transaction and exposes it as
// c.Locals("tx") for database.GetDB. The handler chain commits on success and
// rolls back on any returned error or panic.
// Order: run AFTER IsAuthenticatedHeader() and AFTER Idempotency() (so
// idempotency records aren't tied to the handler TX).
func RequestTx(db *gorm.DB, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		tx := db.WithContext(c.UserContext()).Begin()
		if tx.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to begin transaction")
		}

		// Ensure we always cleanup.
		defer func() {
			if r := recover(); r != nil {
				_ = tx.Rollback()
				panic(r) // re-panic after rollback so the recover middleware can catch
			}
			if err != nil || c.Response().StatusCode() >= fiber.StatusBadRequest {
				_ = tx.Rollback()
				return
			}
			if e := tx.Commit().Error; e != nil {
				log.Error("tx commit failed", zap.String("path", c.Path()), zap.Error(e))
				err = fiber.NewError(fiber.StatusInternalServerError, "transaction commit failed")
			}
		}()

		c.Locals("tx", tx)

		err = c.Next()
		return err
	}
}
