package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Status       string      `json:"status"`
	ResponseCode int         `json:"response_code"`
	Data         interface{} `json:"data"`
}

type FailureResponse struct {
	Status       string `json:"status"`
	ResponseCode int    `json:"response_code"`
	ErrorMessage string `json:"error_message"`
}

// OK writes data in the success envelope.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, SuccessResponse{
		Status:       "Success",
		ResponseCode: http.StatusOK,
		Data:         data,
	})
}

// Fail writes message in the failure envelope with the given status.
func Fail(c echo.Context, code int, message string) error {
	return c.JSON(code, FailureResponse{
		Status:       "Failure",
		ResponseCode: code,
		ErrorMessage: message,
	})
}
