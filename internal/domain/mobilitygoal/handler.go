package mobilitygoal

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mobility/mobility/internal/platform/auth"
	"github.com/mobility/mobility/internal/platform/fhir"
	"github.com/mobility/mobility/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	role := auth.RequireRole(auth.RolePhysician, auth.RoleNurse, auth.RolePhysicalTherapist)

	read := api.Group("", role)
	read.GET("/patients/:patient_id/mobility-goals", h.ListPatientGoals)
	read.GET("/patients/:patient_id/mobility-baseline", h.GetStoredBaseline)
	read.GET("/mobility-goals/:id", h.GetGoal)

	fhirRead := fhirGroup.Group("", role)
	fhirRead.GET("/Goal", h.SearchGoalsFHIR)
	fhirRead.GET("/Goal/:id", h.GetGoalFHIR)
}

func (h *Handler) ListPatientGoals(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(),
		c.Param("patient_id"), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetStoredBaseline(c echo.Context) error {
	b, err := h.svc.StoredBaseline(c.Request().Context(), c.Param("patient_id"))
	if errors.Is(err, ErrNoStoredGoals) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) GetGoal(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	g, err := h.svc.GetGoal(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "goal not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, g)
}

// -- FHIR endpoints --

func (h *Handler) SearchGoalsFHIR(c echo.Context) error {
	patient := c.QueryParam("patient")
	if patient == "" {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("search parameter 'patient' is required"))
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(),
		strings.TrimPrefix(patient, "Patient/"), c.QueryParam("lifecycle-status"), pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}

	resources := make([]map[string]interface{}, len(items))
	for i, item := range items {
		resources[i] = item.ToFHIR()
	}
	bundle := fhir.NewSearchBundle(resources, total, "/fhir/Goal")
	bundle.Link = bundle.Link[:0]
	for _, l := range pg.Links("/fhir/Goal", c.QueryParams(), total) {
		bundle.Link = append(bundle.Link, fhir.BundleLink{Relation: l.Relation, URL: l.URL})
	}
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetGoalFHIR(c echo.Context) error {
	g, err := h.svc.GetGoalByFHIRID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Goal", c.Param("id")))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, g.ToFHIR())
}
