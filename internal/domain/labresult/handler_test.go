package labresult

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newHandlerFixture() (*Handler, *fixture) {
	f := newFixture()
	return NewHandler(f.svc), f
}

func doJSON(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Extract(t *testing.T) {
	h, _ := newHandlerFixture()
	e := echo.New()

	c, rec := doJSON(e, http.MethodPost, "/api/v1/extract", `{"text":"Glucose: 95 mg/dL (Normal range: 70-99)"}`)
	if err := h.Extract(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result struct {
		ParsedBiomarkers []struct {
			Name  string  `json:"Name"`
			Value float64 `json:"Value"`
		} `json:"parsedBiomarkers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(result.ParsedBiomarkers) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(result.ParsedBiomarkers))
	}
	if result.ParsedBiomarkers[0].Value != 95 {
		t.Errorf("expected glucose 95, got %v", result.ParsedBiomarkers[0].Value)
	}
}

func TestHandler_ProcessDocument(t *testing.T) {
	h, f := newHandlerFixture()
	e := echo.New()
	id := uuid.New()
	f.texts.texts[id] = reportText

	c, rec := doJSON(e, http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	if err := h.ProcessDocument(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.status.rows[id].Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", f.status.rows[id].Status)
	}
}

func TestHandler_ProcessDocument_Conflict(t *testing.T) {
	h, f := newHandlerFixture()
	e := echo.New()
	id := uuid.New()
	f.texts.texts[id] = reportText
	f.status.rows[id] = &ProcessingStatus{DocumentID: id, Status: StatusProcessing}

	c, _ := doJSON(e, http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	err := h.ProcessDocument(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %v", err)
	}
}

func TestHandler_ProcessDocument_NotFound(t *testing.T) {
	h, _ := newHandlerFixture()
	e := echo.New()

	c, _ := doJSON(e, http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.ProcessDocument(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_ProcessDocument_BadID(t *testing.T) {
	h, _ := newHandlerFixture()
	e := echo.New()

	c, _ := doJSON(e, http.MethodPost, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.ProcessDocument(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_ListBiomarkers_EmptyIsArray(t *testing.T) {
	h, _ := newHandlerFixture()
	e := echo.New()

	c, rec := doJSON(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.ListBiomarkers(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestHandler_GetStatus_NotFound(t *testing.T) {
	h, _ := newHandlerFixture()
	e := echo.New()

	c, _ := doJSON(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.GetStatus(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
