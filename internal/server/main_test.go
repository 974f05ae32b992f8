package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/database"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-with-enough-length-for-hs256"

type testServer struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	cfg := &config.Config{
		JWTSecret:      testSecret,
		Port:           "0",
		AllowedOrigins: "http://localhost:5173",
	}
	srv, err := NewServerWithDeps(cfg, database.NewStaticManager(db), nil)
	require.NoError(t, err)
	t.Cleanup(func() { srv.invalidator.Close(); _ = sqlDB.Close() })

	return &testServer{srv: srv, app: srv.App(), db: db}
}

func tokenFor(t *testing.T, externalID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": externalID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do sends a request as externalID (anonymous when empty) and decodes the
// JSON response into out when out is non-nil.
func (ts *testServer) do(t *testing.T, method, path, externalID string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if externalID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, externalID))
	}

	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) signUp(t *testing.T, name string) string {
	t.Helper()
	ext := "user_" + name
	status := ts.do(t, http.MethodPost, "/api/users", ext, map[string]string{"username": name}, nil)
	require.Equal(t, fiber.StatusCreated, status)
	return ext
}

func decode(resp *http.Response, out any) error {
	return json.NewDecoder(resp.Body).Decode(out)
}
