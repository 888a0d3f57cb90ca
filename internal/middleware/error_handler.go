package middleware

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

const internalErrorMessage = "internal error, please try again"

func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := internalErrorMessage

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		if he.Internal != nil {
			log.Printf("[HTTP] %s %s: %v", c.Request().Method, c.Request().URL.Path, he.Internal)
		}
	} else {
		log.Printf("[HTTP] %s %s: unhandled error: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"message": msg})
}
