package middlewares

import (
	"errors"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	authHeader   = "Authorization"
	bearerPrefix = "Bearer "
)

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Claims is our custom JWT payload (subject=userID, plus email and role).
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var (
	secretMu  sync.RWMutex
	jwtSecret []byte
)

// SetJWTSecret installs the signing secret. Without it JWT_SECRET is read
// from the environment on first use.
func SetJWTSecret(secret string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	jwtSecret = []byte(strings.TrimSpace(secret))
}

func loadJWTSecret() ([]byte, error) {
	secretMu.RLock()
	sec := jwtSecret
	secretMu.RUnlock()
	if len(sec) > 0 {
		return sec, nil
	}
	env := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if env == "" {
		return nil, errors.New("JWT secret not configured (set JWT_SECRET)")
	}
	SetJWTSecret(env)
	return []byte(env), nil
}

// IsAuthenticatedHeader validates a Bearer token, enforces HS256, and populates c.Locals("userID","email","role").
func IsAuthenticatedHeader() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret, err := loadJWTSecret()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "server auth not configured",
			})
		}

		h := c.Get(authHeader)
		if h == "" || !strings.HasPrefix(strings.ToLower(h), strings.ToLower(bearerPrefix)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "missing/invalid Authorization header"})
		}
		raw := strings.TrimSpace(h[len(bearerPrefix):])
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid bearer token"})
		}

		parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		var claims Claims
		token, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		}
		if strings.TrimSpace(claims.Subject) == "" || (claims.Role != RoleAdmin && claims.Role != RoleClient) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "token missing subject/role"})
		}
		if claims.Role == RoleClient && strings.TrimSpace(claims.Email) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "token missing email"})
		}

		c.Locals("userID", claims.Subject)
		c.Locals("email", strings.ToLower(strings.TrimSpace(claims.Email)))
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// RequireRole lets the request through only for the listed roles. Run it
// after IsAuthenticatedHeader.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !slices.Contains(roles, Role(c)) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "forbidden"})
		}
		return c.Next()
	}
}

func UserID(c *fiber.Ctx) string {
	v, _ := c.Locals("userID").(string)
	return v
}

func UserEmail(c *fiber.Ctx) string {
	v, _ := c.Locals("email").(string)
	return v
}

func Role(c *fiber.Ctx) string {
	v, _ := c.Locals("role").(string)
	return v
}

// GenerateJWT signs a new HS256 token for the given user, expiring in 24h.
func GenerateJWT(userID, email, role string) (string, error) {
	secret, err := loadJWTSecret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
