package session

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mobility/mobility/internal/platform/auth"
)

func newTestHandler() (*Handler, *fakeGoalStore, *echo.Echo) {
	svc, goals := newTestService(nil)
	return NewHandler(svc), goals, echo.New()
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, "pt-7"))
}

const startBody = `{"patient_id":"pat-1","maintain_energy":true,
	"baseline":{"watt_goal":35,"duration_min_per_session":15,"sessions_per_day":2,"resistance_level":5},
	"patient":{"level_of_care":"ward","mobility_status":"ambulatory","age":67}}`

func startViaHandler(t *testing.T, h *Handler, e *echo.Echo) View {
	t.Helper()
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, startBody), rec)
	if err := h.Start(c); err != nil { t.Fatalf("start: %v", err) }
	if rec.Code != http.StatusCreated { t.Fatalf("expected 201, got %d", rec.Code) }
	var v View
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil { t.Fatalf("decode: %v", err) }
	return v
}

func expectHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok { t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err) }
	if httpErr.Code != code { t.Errorf("expected %d, got %d", code, httpErr.Code) }
}

func TestHandler_Start(t *testing.T) {
	h, _, e := newTestHandler()
	v := startViaHandler(t, h, e)
	if v.PatientID != "pat-1" || !v.MaintainEnergy || v.TotalDailyEnergy != 1050 { t.Errorf("unexpected view: %+v", v) }
	if len(v.Goals) != 5 { t.Errorf("expected 5 goal previews, got %d", len(v.Goals)) }
	if !v.ReadyToCommit { t.Error("baseline session should be ready to commit") }
}

func TestHandler_Start_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	for _, body := range []string{`{}`, `{"patient_id":"pat-1","baseline":{"watt_goal":35}}`, `not json`} {
		c := e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder())
		expectHTTPError(t, h.Start(c), http.StatusBadRequest)
	}
}

func TestHandler_Start_NoBaseline(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"patient_id":"pat-1"}`), httptest.NewRecorder())
	expectHTTPError(t, h.Start(c), http.StatusNotFound)
}

func TestHandler_Get(t *testing.T) {
	h, _, e := newTestHandler()
	v := startViaHandler(t, h, e)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	if err := h.Get(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusOK { t.Errorf("expected 200, got %d", rec.Code) }
}

func TestHandler_Get_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id"); c.SetParamValues(uuid.New().String())
	expectHTTPError(t, h.Get(c), http.StatusNotFound)

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id"); c.SetParamValues("nope")
	expectHTTPError(t, h.Get(c), http.StatusBadRequest)
}

func TestHandler_ApplyEvents_Single(t *testing.T) {
	h, _, e := newTestHandler()
	v := startViaHandler(t, h, e)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"type":"edit","field":"resistance","value":9}`), rec)
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	if err := h.ApplyEvents(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	var got View
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Parameters.ResistanceLevel != 9 || math.Abs(got.Parameters.DurationMinutes-11.25) > 1e-9 { t.Errorf("unexpected parameters: %+v", got.Parameters) }
	if got.ReadyToCommit { t.Error("override advisories should block commit") }
	if len(got.Advisories) == 0 { t.Error("expected advisories") }
}

func TestHandler_ApplyEvents_Batch(t *testing.T) {
	h, _, e := newTestHandler()
	v := startViaHandler(t, h, e)
	body := `{"events":[{"type":"edit","field":"resistance","value":9},{"type":"acknowledge"}]}`
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, body), rec)
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	if err := h.ApplyEvents(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	var got View
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.Acknowledged || !got.ReadyToCommit { t.Errorf("expected acknowledged and ready, got %+v", got) }
}

func TestHandler_ApplyEvents_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	v := startViaHandler(t, h, e)
	for _, body := range []string{`{}`, `{"type":"teleport"}`, `{"type":"edit","field":"cadence","value":40}`} {
		c := e.NewContext(jsonRequest(http.MethodPost, body), httptest.NewRecorder())
		c.SetParamNames("id"); c.SetParamValues(v.ID.String())
		expectHTTPError(t, h.ApplyEvents(c), http.StatusBadRequest)
	}
}

func TestHandler_Commit(t *testing.T) {
	h, goals, e := newTestHandler()
	v := startViaHandler(t, h, e)
	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, ``), rec)
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	if err := h.Commit(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusCreated { t.Errorf("expected 201, got %d", rec.Code) }
	if len(goals.commits) != 1 || goals.commits[0].SetBy != "pt-7" { t.Errorf("unexpected commits: %+v", goals.commits) }
}

func TestHandler_Commit_Conflict(t *testing.T) {
	h, _, e := newTestHandler()
	v := startViaHandler(t, h, e)
	c := e.NewContext(jsonRequest(http.MethodPost, `{"type":"edit","field":"power","value":60}`), httptest.NewRecorder())
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	if err := h.ApplyEvents(c); err != nil { t.Fatalf("edit: %v", err) }

	c = e.NewContext(jsonRequest(http.MethodPost, ``), httptest.NewRecorder())
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	expectHTTPError(t, h.Commit(c), http.StatusConflict)
}

func TestHandler_Discard(t *testing.T) {
	h, _, e := newTestHandler()
	v := startViaHandler(t, h, e)
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	if err := h.Discard(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusNoContent { t.Errorf("expected 204, got %d", rec.Code) }

	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id"); c.SetParamValues(v.ID.String())
	expectHTTPError(t, h.Discard(c), http.StatusNotFound)
}
