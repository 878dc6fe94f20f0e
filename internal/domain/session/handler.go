package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mobility/mobility/internal/domain/prescription"
	"github.com/mobility/mobility/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	role := auth.RequireRole(auth.RolePhysician, auth.RoleNurse, auth.RolePhysicalTherapist)

	g := api.Group("/prescription-sessions", role)
	g.POST("", h.Start)
	g.GET("/:id", h.Get)
	g.POST("/:id/events", h.ApplyEvents)
	g.POST("/:id/commit", h.Commit)
	g.DELETE("/:id", h.Discard)
}

func sessionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	case errors.Is(err, ErrNoBaseline):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrAcknowledgementRequired):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrBaselineUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, prescription.ErrUnknownEvent), errors.Is(err, prescription.ErrUnknownField):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) Start(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.StartedBy = auth.UserIDFromContext(c.Request().Context())

	sess, err := h.svc.Start(c.Request().Context(), req)
	if err != nil {
		return httpError(err)
	}
	c.Response().Header().Set("Location", "/api/v1/prescription-sessions/"+sess.ID.String())
	return c.JSON(http.StatusCreated, sess.View())
}

func (h *Handler) Get(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess.View())
}

// eventsRequest accepts a single event object or {"events": [...]}.
type eventsRequest struct {
	prescription.Event
	Events []prescription.Event `json:"events,omitempty"`
}

func (h *Handler) ApplyEvents(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	var req eventsRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	events := req.Events
	if len(events) == 0 {
		if req.Type == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "event type is required")
		}
		events = []prescription.Event{req.Event}
	}

	sess, err := h.svc.Apply(c.Request().Context(), id, events...)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sess.View())
}

func (h *Handler) Commit(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	goals, err := h.svc.Commit(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"session_id": id,
		"goals":      goals,
	})
}

func (h *Handler) Discard(c echo.Context) error {
	id, err := sessionID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Discard(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
