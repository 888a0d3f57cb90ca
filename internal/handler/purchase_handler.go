package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/event-ticketing/internal/dto"
	"github.com/Eursukkul/event-ticketing/internal/middleware"
	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/labstack/echo/v4"
)

// HeaderIdempotencyKey may carry the key instead of the request body.
const HeaderIdempotencyKey = "Idempotency-Key"

type PurchaseHandler struct {
	svc     service.PurchaseService
	payload func(ticketID string) string
}

func NewPurchaseHandler(svc service.PurchaseService, payload func(ticketID string) string) *PurchaseHandler {
	return &PurchaseHandler{svc: svc, payload: payload}
}

func (h *PurchaseHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/purchases", h.Purchase, middleware.RequireUser)
	g.GET("/orders", h.ListOrders, middleware.RequireUser)
	g.GET("/orders/:id", h.GetOrder, middleware.RequireUser)
	g.POST("/orders/:id/cancel", h.CancelOrder, middleware.RequireUser)
}

func (h *PurchaseHandler) Purchase(c echo.Context) error {
	var req dto.PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	key := req.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get(HeaderIdempotencyKey)
	}

	in := service.PurchaseRequest{
		UserID:         middleware.UserID(c),
		EventID:        req.EventID,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: key,
	}
	for _, li := range req.LineItems {
		in.LineItems = append(in.LineItems, service.LineItemRequest{TierID: li.TierID, Quantity: li.Quantity})
	}

	res, err := h.svc.Purchase(c.Request().Context(), in)
	if err != nil {
		var payErr *service.PaymentError
		if errors.As(err, &payErr) && res != nil && res.Order != nil {
			return c.JSON(http.StatusPaymentRequired, dto.PaymentFailedResponse{
				Message: err.Error(),
				Order:   dto.ToOrderResponse(res.Order, nil),
			})
		}
		return toHTTPError(err)
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.JSON(status, dto.ToOrderResponse(res.Order, h.payload))
}

func (h *PurchaseHandler) ListOrders(c echo.Context) error {
	orders, err := h.svc.ListOrders(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.OrderResponse, len(orders))
	for i := range orders {
		resp[i] = dto.ToOrderResponse(&orders[i], nil)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *PurchaseHandler) GetOrder(c echo.Context) error {
	order, err := h.svc.GetOrder(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToOrderResponse(order, h.payload))
}

func (h *PurchaseHandler) CancelOrder(c echo.Context) error {
	order, err := h.svc.CancelOrder(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToOrderResponse(order, nil))
}
