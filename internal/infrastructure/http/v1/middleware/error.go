package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmaledger/internal/core/apperror"
	"pharmaledger/pkg/logger"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload mirrors apperror.AppError without the cause.
type ErrorPayload struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			logger.Error(c.Request.Context(), "unhandled error", "error", err)
			appErr = apperror.NewInternal(err)
		} else if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}

		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		payload := ErrorPayload{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
		if status >= 500 {
			payload.Message = "Internal server error"
			payload.Details = map[string]any{"request_id": c.GetString("request_id")}
		}

		body, _ := json.Marshal(ErrorBody{Error: payload})
		finishIdempotency(c, status, body)
		c.Data(status, "application/json; charset=utf-8", body)
	}
}
