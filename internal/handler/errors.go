package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/event-ticketing/internal/service"
	"github.com/Eursukkul/event-ticketing/internal/ticketcode"
	"github.com/labstack/echo/v4"
)

const internalErrorMessage = "internal error, please try again"

// toHTTPError maps service errors onto status codes. Anything unrecognised is a 500
// whose cause is kept for the error handler's log but not shown to the client.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrUnknownTier),
		errors.Is(err, ticketcode.ErrInvalidPayload):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrEventNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrTicketNotFound),
		errors.Is(err, service.ErrNotEnrolled),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrReservationNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrEventFull):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())

	case errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrPaymentFailed):
		return echo.NewHTTPError(http.StatusPaymentRequired, err.Error())

	case errors.Is(err, service.ErrAlreadyEnrolled),
		errors.Is(err, service.ErrInsufficientInventory),
		errors.Is(err, service.ErrPurchaseInProgress),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrInvalidTicketState),
		errors.Is(err, service.ErrEventClosed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, internalErrorMessage).SetInternal(err)
	}
}
