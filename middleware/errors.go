package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/log"
)

// ErrorHandler renders every handler error as domain.APIErrorResponse.
func ErrorHandler(logger log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()

		status, code, message := http.StatusInternalServerError, "", ""
		var pe *perrors.PortalError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &pe):
			status, code, message = statusOf(pe), pe.Code, pe.Message
		case errors.As(err, &he):
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			}
		}
		if code == "" {
			code = codeOf(status)
		}
		if status >= http.StatusInternalServerError {
			logger.Error(ctx, "request failed", err, map[string]interface{}{"path": c.Request().URL.Path})
			if message == "" {
				message = "Something went wrong. Please try again later."
			}
		}

		body := domain.APIErrorResponse{
			Status:    status,
			Code:      code,
			Message:   message,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Path:      c.Request().URL.Path,
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error(ctx, "failed to write error response", err, nil)
		}
	}
}

func statusOf(pe *perrors.PortalError) int {
	if pe.Status != 0 {
		return pe.Status
	}
	switch pe.Kind {
	case perrors.KindValidation:
		return http.StatusBadRequest
	case perrors.KindAuth:
		return http.StatusUnauthorized
	case perrors.KindNotFoundOrForbidden:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func codeOf(status int) string {
	return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}
