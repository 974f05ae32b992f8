package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRequired(t *testing.T) {
	app := fiber.New()
	secret := "test-secret-key-12345678901234567890123456789012"
	InitMiddleware(&config.Config{JWTSecret: secret})

	app.Get("/test", IdentityRequired, func(c *fiber.Ctx) error {
		ctxID, _ := c.UserContext().Value(ExternalIDKey).(string)
		return c.JSON(fiber.Map{"externalID": ExternalID(c), "ctxID": ctxID})
	})

	sign := func(claims jwt.MapClaims, method jwt.SigningMethod) string {
		token := jwt.NewWithClaims(method, claims)
		s, _ := token.SignedString([]byte(secret))
		return s
	}
	generateToken := func(sub string, exp time.Duration) string {
		return sign(jwt.MapClaims{"sub": sub, "exp": time.Now().Add(exp).Unix()}, jwt.SigningMethodHS256)
	}

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
		expectedID     string
	}{
		{
			name:           "Happy Path",
			authHeader:     "Bearer " + generateToken("user_2abc", time.Hour),
			expectedStatus: http.StatusOK,
			expectedID:     "user_2abc",
		},
		{
			name:           "Missing Header",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Invalid Format",
			authHeader:     "Basic dXNlcjpwYXNz",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed Token",
			authHeader:     "Bearer malformed.token.here",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Expired Token",
			authHeader:     "Bearer " + generateToken("user_2abc", -time.Hour),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Missing Subject",
			authHeader:     "Bearer " + sign(jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, jwt.SigningMethodHS256),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Wrong Secret",
			authHeader:     "Bearer " + func() string { s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user_x"}).SignedString([]byte("other-secret")); return s }(),
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedID, body["externalID"])
				assert.Equal(t, tt.expectedID, body["ctxID"])
			}
		})
	}
}

func TestExternalID_PublicRoute(t *testing.T) {
	app := fiber.New()
	app.Get("/public", func(c *fiber.Ctx) error {
		return c.SendString("[" + ExternalID(c) + "]")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/public", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
