package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrNotFound is returned by stores when a key has expired or never existed.
var ErrNotFound = errors.New("not found")

// APIError is the JSON body of every failed /v1 request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func httpError(status int, code, message string) *echo.HTTPError {
	return echo.NewHTTPError(status, &APIError{Code: code, Message: message})
}

func NotFound(code, message string) *echo.HTTPError {
	return httpError(http.StatusNotFound, code, message)
}

func InternalError(code, message string) *echo.HTTPError {
	return httpError(http.StatusInternalServerError, code, message)
}
