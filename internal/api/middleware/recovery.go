package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// errorBody mirrors the error envelope the handlers send, so callers see one
// response shape whether the failure happened in a handler or in middleware.
// The handler package imports this one, so the shape is duplicated here
// instead of shared.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// abortWithError stops the chain and sends the standard error envelope
func abortWithError(c *gin.Context, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	body.CorrelationID = GetCorrelationID(c)
	c.AbortWithStatusJSON(status, body)
}

// Recovery converts a handler panic into the standard error envelope. The
// correlation id and caller identity are logged alongside the stack, so an
// interrupted transfer can be traced back to the request that caused it.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			attrs := []any{
				"error", r,
				"stack", string(debug.Stack()),
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			}
			if id := GetCorrelationID(c); id != "" {
				attrs = append(attrs, "correlation_id", id)
			}
			if id, ok := GetIdentity(c); ok {
				attrs = append(attrs, "user_id", id.UserID)
			}
			logger.Error("Panic recovered", attrs...)

			abortWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
		}()

		c.Next()
	}
}
