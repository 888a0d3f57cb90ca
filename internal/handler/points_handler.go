package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
)

type PointsHandler struct {
	svc service.PointsService
}

func NewPointsHandler(svc service.PointsService) *PointsHandler {
	return &PointsHandler{svc: svc}
}

func (h *PointsHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/points", h.GetBalance, middleware.RequireUser)
	g.POST("/points/purchase", h.BuyPoints, middleware.RequireUser)
}

func (h *PointsHandler) GetBalance(c echo.Context) error {
	userID := middleware.UserID(c)
	points, err := h.svc.Balance(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.PointsBalanceResponse{UserID: userID, Points: points})
}

func (h *PointsHandler) BuyPoints(c echo.Context) error {
	var req dto.BuyPointsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.Request().Header.Get(HeaderIdempotencyKey)
	}

	purchase, err := h.svc.BuyPoints(c.Request().Context(), service.BuyPointsRequest{
		UserID:         middleware.UserID(c),
		Points:         req.Points,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		var payErr *service.PaymentError
		if errors.As(err, &payErr) && purchase != nil {
			return c.JSON(http.StatusPaymentRequired, dto.ToPointsPurchaseResponse(purchase))
		}
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, dto.ToPointsPurchaseResponse(purchase))
}
