package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tubechat/tubechat/errors"
)

// errorBody is the JSON error shape. Stack is only populated outside
// production.
type errorBody struct {
	Error string            `json:"error"`
	Code  errors.ErrorCode  `json:"code,omitempty"`
	Meta  map[string]string `json:"meta,omitempty"`
	Stack string            `json:"stack,omitempty"`
}

// HandleError centralizes error mapping and logging. AppError values keep
// their HTTP code; everything else becomes a 500.
func HandleError(logger *zap.Logger, c echo.Context, err error, includeStack bool) error {
	path := c.Path()

	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		logger.Error("http.response.error",
			zap.String("path", path),
			zap.String("app_code", appErr.Code.String()),
			zap.Error(err),
		)

		body := errorBody{
			Error: appErr.Message,
			Code:  appErr.Code,
			Meta:  appErr.Details,
		}
		if includeStack && appErr.Raw != nil {
			body.Stack = appErr.Raw.Error()
		}
		return c.JSON(appErr.HTTPCode, body)
	}

	logger.Error("http.response.error",
		zap.String("path", path),
		zap.Error(err),
	)

	body := errorBody{Error: "Internal server error", Code: errors.ErrorCode_INTERNAL}
	if includeStack {
		body.Stack = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, body)
}
