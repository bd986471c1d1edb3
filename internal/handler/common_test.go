package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/timingle-admin/internal/apperr"
)

func newContext(target string, header http.Header) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequestMetaPrefersForwardedFor(t *testing.T) {
	c := newContext("/", http.Header{
		"X-Forwarded-For": {"203.0.113.7, 10.0.0.2"},
		"X-Real-Ip":       {"198.51.100.1"},
		"User-Agent":      {"curl/8"},
		"X-Request-Id":    {"rid-1"},
	})
	m := requestMeta(c)
	if m.IPAddress != "203.0.113.7" {
		t.Errorf("expected first forwarded hop, got %q", m.IPAddress)
	}
	if m.UserAgent != "curl/8" || m.RequestID != "rid-1" {
		t.Errorf("unexpected meta %+v", m)
	}

	c = newContext("/", http.Header{"X-Real-Ip": {"198.51.100.1"}})
	if got := requestMeta(c).IPAddress; got != "198.51.100.1" {
		t.Errorf("expected X-Real-IP fallback, got %q", got)
	}
}

func TestQueryTime(t *testing.T) {
	c := newContext("/?startDate=2026-03-01&endDate=2026-03-02&at=2026-03-01T10:00:00%2B09:00&bad=03/01/2026", nil)

	start, err := queryTime(c, "startDate", false)
	if err != nil || !start.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("startDate: %v %v", start, err)
	}
	end, err := queryTime(c, "endDate", true)
	if err != nil || !end.Equal(time.Date(2026, 3, 2, 23, 59, 59, 999999999, time.UTC)) {
		t.Fatalf("endDate should cover the whole day: %v %v", end, err)
	}
	at, err := queryTime(c, "at", false)
	if err != nil || !at.Equal(time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339: %v %v", at, err)
	}
	if _, err := queryTime(c, "bad", false); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if v, err := queryTime(c, "missing", false); v != nil || err != nil {
		t.Errorf("missing param should be nil, got %v %v", v, err)
	}
}

func TestPageParams(t *testing.T) {
	page, limit, err := pageParams(newContext("/", nil))
	if err != nil || page != 1 || limit != 0 {
		t.Fatalf("defaults: %d %d %v", page, limit, err)
	}
	if _, _, err := pageParams(newContext("/?page=two", nil)); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRespondErrorHidesStorageCause(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = respondError(c, apperr.Storage("list users", errors.New("dial tcp 10.0.0.5:3306: refused")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{\"error\":\"Internal Server Error\"}\n" {
		t.Errorf("unexpected body %q", got)
	}
}
