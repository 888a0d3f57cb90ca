package handler

import (
	"net/http"

	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
)

type EventHandler struct {
	svc service.EventService
}

func NewEventHandler(svc service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

func (h *EventHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/events", h.CreateEvent, middleware.RequireUser)
	g.GET("/events", h.ListEvents)
	g.GET("/events/:id", h.GetEvent)
	g.GET("/events/:id/availability", h.GetAvailability)
}

func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req dto.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	in := service.CreateEventInput{
		CreatedBy:    middleware.UserID(c),
		Title:        req.Title,
		Description:  req.Description,
		MaxAttendees: req.MaxAttendees,
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
	}
	for _, t := range req.Tiers {
		in.Tiers = append(in.Tiers, service.TierInput{Name: t.Name, UnitPrice: t.UnitPrice, Capacity: t.Capacity})
	}

	event, err := h.svc.CreateEvent(c.Request().Context(), in)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToEventResponse(event))
}

func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.svc.ListEvents(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.EventResponse, len(events))
	for i := range events {
		resp[i] = dto.ToEventResponse(&events[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *EventHandler) GetEvent(c echo.Context) error {
	event, err := h.svc.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToEventResponse(event))
}

func (h *EventHandler) GetAvailability(c echo.Context) error {
	eventID := c.Param("id")
	tiers, err := h.svc.Availability(c.Request().Context(), eventID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.AvailabilityResponse{EventID: eventID, Tiers: tiers})
}
