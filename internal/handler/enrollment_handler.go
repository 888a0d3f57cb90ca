package handler

import (
	"net/http"

	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
)

type EnrollmentHandler struct {
	svc service.EnrollmentService
}

func NewEnrollmentHandler(svc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{svc: svc}
}

func (h *EnrollmentHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/events/:id/enrollment", h.Enroll, middleware.RequireUser)
	g.DELETE("/events/:id/enrollment", h.Cancel, middleware.RequireUser)
	g.GET("/events/:id/enrollments", h.ListForEvent)
	g.GET("/my-enrollments", h.ListMine, middleware.RequireUser)
}

func (h *EnrollmentHandler) Enroll(c echo.Context) error {
	// The body is optional; an empty POST enrolls without an idempotency key.
	var req dto.EnrollRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Request().Header.Get(HeaderIdempotencyKey)
	}

	enrollment, err := h.svc.Enroll(c.Request().Context(), middleware.UserID(c), c.Param("id"), req.IdempotencyKey)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToEnrollmentResponse(enrollment))
}

func (h *EnrollmentHandler) Cancel(c echo.Context) error {
	if err := h.svc.Cancel(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EnrollmentHandler) ListForEvent(c echo.Context) error {
	list, err := h.svc.ListForEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.EnrollmentResponse, len(list))
	for i := range list {
		resp[i] = dto.ToEnrollmentResponse(&list[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *EnrollmentHandler) ListMine(c echo.Context) error {
	list, err := h.svc.ListForUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.EnrollmentResponse, len(list))
	for i := range list {
		resp[i] = dto.ToEnrollmentResponse(&list[i])
	}
	return c.JSON(http.StatusOK, resp)
}
