package middlewares

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/ahmed-abdelmageed/vise-services-sub001/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const maxIdempotencyKey = 128

// Idempotency processes Idempotency-Key for mutating HTTP methods. The first
// completed response is stored and replayed for retries of the same request;
// a retry while the first call is still running gets 409. Anonymous callers
// are keyed by the header alone, authenticated ones also by their subject.
func Idempotency(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		method := strings.ToUpper(c.Method())
		if method != fiber.MethodPost && method != fiber.MethodPut && method != fiber.MethodPatch && method != fiber.MethodDelete {
			return c.Next()
		}

		key := strings.TrimSpace(c.Get("Idempotency-Key"))
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKey {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Idempotency-Key too long"})
		}

		subject := UserID(c)
		path := c.OriginalURL() // includes query string
		reqHash, err := requestHash(c, method, path, subject)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		// ---- Phase 1: read/create "pending" under a short TX
		var existing models.IdempotencyKey
		created := false
		err = db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("key = ?", key).First(&existing).Error; err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusInternalServerError, "idempotency lookup failed")
				}
				rec := models.IdempotencyKey{
					Key:         key,
					RequestHash: reqHash,
					Method:      method,
					Path:        path,
					Subject:     subject,
				}
				if e2 := tx.Create(&rec).Error; e2 != nil {
					// Could be unique race: read again
					if e3 := tx.Where("key = ?", key).First(&existing).Error; e3 != nil {
						return fiber.NewError(fiber.StatusInternalServerError, "idempotency create failed")
					}
				} else {
					existing = rec
					created = true
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		if existing.RequestHash != reqHash || existing.Subject != subject {
			return fiber.NewError(fiber.StatusConflict, "Idempotency-Key reuse with different request")
		}
		if existing.ResponseStatus != 0 {
			c.Set("Idempotent-Replayed", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
			return c.Status(existing.ResponseStatus).Send(existing.ResponseBody)
		}
		if !created {
			return fiber.NewError(fiber.StatusConflict, "a request with this Idempotency-Key is still in progress")
		}

		// We own the pending row: run the handler once.
		release := func() {
			_ = db.Where("key = ? AND response_status = 0", key).Delete(&models.IdempotencyKey{}).Error
		}
		if err := c.Next(); err != nil {
			// failed requests may be retried with the same key
			release()
			return err
		}
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			release()
			return nil
		}

		// ---- Phase 2: store the response
		now := time.Now().UTC()
		resp := c.Response().Body()
		blob := make([]byte, len(resp))
		copy(blob, resp)
		// best-effort: don't break the successful response
		_ = db.Model(&models.IdempotencyKey{}).
			Where("key = ?", key).
			Updates(map[string]any{
				"response_status": status,
				"response_body":   blob,
				"completed_at":    &now,
			}).Error

		return nil
	}
}

// requestHash builds a deterministic hash of method|path|body|subject. For
// multipart bodies the parsed fields and file contents are hashed instead of
// the raw bytes, whose boundary changes between retries.
func requestHash(c *fiber.Ctx, method, path, subject string) (string, error) {
	h := sha256.New()
	write := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{'\n'})
		}
	}
	write(method, path, subject)

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		h.Write(c.Body())
		return hex.EncodeToString(h.Sum(nil)), nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return "", err
	}
	for _, name := range sortedKeys(form.Value) {
		write(append([]string{name}, form.Value[name]...)...)
	}
	for _, name := range sortedKeys(form.File) {
		for _, fh := range form.File[name] {
			write(name, fh.Filename)
			if err := hashFile(h, fh); err != nil {
				return "", err
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(h hash.Hash, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
