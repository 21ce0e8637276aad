package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bitacora/bitacora/internal/platform/auth"
)

func TestRecoveryRespondsWithGenericError(t *testing.T) {
	e := echo.New()
	e.Use(Recovery(zerolog.Nop()))
	e.GET("/boom", func(c echo.Context) error {
		panic("handler exploded")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "error al procesar la solicitud" {
		t.Errorf("error = %q, want the generic client message", body["error"])
	}
	if strings.Contains(rec.Body.String(), "exploded") {
		t.Error("panic detail leaked to the client")
	}
}

func TestRecoveryLogsPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	e.Use(Recovery(logger))
	e.GET("/boom", func(c echo.Context) error {
		panic("handler exploded")
	})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	if !strings.Contains(buf.String(), "handler exploded") {
		t.Error("panic value missing from log")
	}
	if !strings.Contains(buf.String(), "/boom") {
		t.Error("request path missing from log")
	}
}

func TestLoggerIncludesActor(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	e.Use(RequestID())
	e.Use(Logger(logger))
	// Stands in for the auth middleware, which swaps the request context
	// deeper in the chain.
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := auth.Session{UserID: 7, Name: "juan", Role: auth.RoleStandard}
			c.SetRequest(c.Request().WithContext(auth.WithSession(c.Request().Context(), sess)))
			return next(c)
		}
	})
	e.GET("/api/v1/bitacora/buscar", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]int{"total": 0})
	})

	e.ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/api/v1/bitacora/buscar", nil))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line["user_id"] != float64(7) {
		t.Errorf("user_id = %v, want 7", line["user_id"])
	}
	if line["role"] != "standard" {
		t.Errorf("role = %v", line["role"])
	}
	if line["path"] != "/api/v1/bitacora/buscar" {
		t.Errorf("path = %v", line["path"])
	}
	if line["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v", line["status"])
	}
	if line["request_id"] == "" || line["request_id"] == nil {
		t.Error("request_id missing")
	}
}

func TestLoggerAnonymousRequestOmitsActor(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	e.Use(Logger(logger))
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if _, ok := line["user_id"]; ok {
		t.Error("anonymous request logged a user_id")
	}
}

func TestRequestIDHonorsInbound(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fijo-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "fijo-123" {
		t.Errorf("X-Request-ID = %q, want the inbound id", got)
	}

	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec2.Header().Get("X-Request-ID") == "" {
		t.Error("no id assigned when none supplied")
	}
}
