package handler

import (
	"net/http"

	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/models"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
)

type TicketHandler struct {
	svc service.TicketService
}

func NewTicketHandler(svc service.TicketService) *TicketHandler {
	return &TicketHandler{svc: svc}
}

func (h *TicketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/my-tickets", h.ListMine, middleware.RequireUser)
	g.POST("/tickets/:id/cancel", h.Cancel, middleware.RequireUser)
	g.POST("/tickets/redeem", h.Redeem, middleware.RequireUser)
}

func (h *TicketHandler) ListMine(c echo.Context) error {
	views, err := h.svc.ListForUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.TicketResponse, len(views))
	for i := range views {
		payload := ""
		if views[i].Status == models.TicketIssued {
			payload = views[i].Payload
		}
		resp[i] = dto.ToTicketResponse(&views[i].Ticket, payload)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *TicketHandler) Cancel(c echo.Context) error {
	ticket, err := h.svc.Cancel(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket, ""))
}

func (h *TicketHandler) Redeem(c echo.Context) error {
	var req dto.RedeemTicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Payload == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payload is required")
	}

	ticket, err := h.svc.Redeem(c.Request().Context(), req.Payload)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToTicketResponse(ticket, ""))
}
