package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.pilab.hu/portal/domain"
	perrors "go.pilab.hu/portal/errors"
	"go.pilab.hu/portal/log"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{"validation", perrors.NewValidation("invalid_answers", "Must be at least 1 room"), 400, "invalid_answers", "Must be at least 1 room"},
		{"server with status", perrors.NewServer(409, "email_taken", "Email is already registered.", ""), 409, "email_taken", "Email is already registered."},
		{"echo error", echo.NewHTTPError(http.StatusForbidden, "nope"), 403, "forbidden", "nope"},
		{"plain error", errors.New("db down"), 500, "internal_server_error", "Something went wrong. Please try again later."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.HTTPErrorHandler = ErrorHandler(log.Nop())
			e.GET("/api/x", func(echo.Context) error { return tt.err })

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			var body domain.APIErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, "/api/x", body.Path)
			assert.NotEmpty(t, body.Timestamp)
		})
	}
}
