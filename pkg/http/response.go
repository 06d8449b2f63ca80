package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// APIResponse is the envelope of every dashboard API reply.
type APIResponse struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeEnvelope(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, APIResponse{
		Status:  statusCode,
		Message: http.StatusText(statusCode),
		Data:    data,
	})
}

func SuccessResponse(c echo.Context, data interface{}) error {
	return writeEnvelope(c, http.StatusOK, data)
}

// AcceptedResponse acknowledges work that continues in the background, such
// as a scan session.
func AcceptedResponse(c echo.Context, data interface{}) error {
	return writeEnvelope(c, http.StatusAccepted, data)
}

// BadRequestResponse reports request validation failures.
func BadRequestResponse(c echo.Context, errs []ValidationError) error {
	return writeEnvelope(c, http.StatusBadRequest, errs)
}

// AppErrorResponse writes err with the status it carries. Anything that is
// not an *AppError becomes an opaque 500.
func AppErrorResponse(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if ra, ok := appErr.Params[ParamRetryAfter].(int); ok && ra > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(ra))
		}
		return writeEnvelope(c, appErr.Status, []*AppError{appErr})
	}
	return writeEnvelope(c, http.StatusInternalServerError, "Something went wrong")
}
