package mobilitygoal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mobility/mobility/internal/domain/prescription"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func commitFor(t *testing.T, h *Handler, patientID string) []*MobilityGoal {
	t.Helper()
	goals, err := h.svc.CommitPrescription(context.Background(), Commit{PatientID: patientID, Entries: testEntries()})
	if err != nil { t.Fatalf("commit: %v", err) }
	return goals
}

func TestHandler_ListPatientGoals(t *testing.T) {
	h, e := newTestHandler()
	commitFor(t, h, "pat-1")
	req := httptest.NewRequest(http.MethodGet, "/?status=active", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id"); c.SetParamValues("pat-1")
	if err := h.ListPatientGoals(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusOK { t.Errorf("expected 200, got %d", rec.Code) }
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["total"] != float64(5) { t.Errorf("expected total 5, got %v", resp["total"]) }
}

func TestHandler_ListPatientGoals_BadStatus(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?status=bogus", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id"); c.SetParamValues("pat-1")
	err := h.ListPatientGoals(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest { t.Errorf("expected 400, got %v", err) }
}

func TestHandler_GetStoredBaseline(t *testing.T) {
	h, e := newTestHandler()
	commitFor(t, h, "pat-1")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id"); c.SetParamValues("pat-1")
	if err := h.GetStoredBaseline(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	var b prescription.Baseline
	json.Unmarshal(rec.Body.Bytes(), &b)
	if b.SessionsPerDay != 2 || b.WattGoal != 46.67 { t.Errorf("unexpected baseline: %+v", b) }
}

func TestHandler_GetStoredBaseline_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id"); c.SetParamValues("pat-none")
	err := h.GetStoredBaseline(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound { t.Errorf("expected 404, got %v", err) }
}

func TestHandler_GetGoal(t *testing.T) {
	h, e := newTestHandler()
	goals := commitFor(t, h, "pat-1")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id"); c.SetParamValues(goals[0].ID.String())
	if err := h.GetGoal(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusOK { t.Errorf("expected 200, got %d", rec.Code) }
}

func TestHandler_GetGoal_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id"); c.SetParamValues(uuid.New().String())
	if err := h.GetGoal(c); err == nil { t.Error("expected error") }
}

func TestHandler_GetGoal_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id"); c.SetParamValues("not-a-uuid")
	err := h.GetGoal(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest { t.Errorf("expected 400, got %v", err) }
}

func TestHandler_SearchGoalsFHIR(t *testing.T) {
	h, e := newTestHandler()
	commitFor(t, h, "pat-1")
	commitFor(t, h, "pat-2")
	req := httptest.NewRequest(http.MethodGet, "/fhir/Goal?patient=Patient/pat-1&_count=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.SearchGoalsFHIR(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	if rec.Code != http.StatusOK { t.Errorf("expected 200, got %d", rec.Code) }
	var bundle map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &bundle)
	if bundle["resourceType"] != "Bundle" { t.Errorf("expected Bundle, got %v", bundle["resourceType"]) }
	if bundle["total"] != float64(5) { t.Errorf("expected total 5, got %v", bundle["total"]) }
	links, _ := bundle["link"].([]interface{})
	if len(links) != 2 { t.Errorf("expected self and next links, got %v", links) }
}

func TestHandler_SearchGoalsFHIR_RequiresPatient(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/fhir/Goal", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h.SearchGoalsFHIR(c)
	if rec.Code != http.StatusBadRequest { t.Errorf("expected 400, got %d", rec.Code) }
}

func TestHandler_GetGoalFHIR(t *testing.T) {
	h, e := newTestHandler()
	goals := commitFor(t, h, "pat-1")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id"); c.SetParamValues(goals[0].FHIRID)
	if err := h.GetGoalFHIR(c); err != nil { t.Fatalf("unexpected error: %v", err) }
	var goal map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &goal)
	if goal["resourceType"] != "Goal" { t.Errorf("expected Goal, got %v", goal["resourceType"]) }
}

func TestHandler_GetGoalFHIR_NotFound(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id"); c.SetParamValues("missing")
	h.GetGoalFHIR(c)
	if rec.Code != http.StatusNotFound { t.Errorf("expected 404, got %d", rec.Code) }
}
