package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CorrelationIDHeader carries the request correlation id on the wire
	CorrelationIDHeader = "X-Correlation-ID"

	// CorrelationIDKey is the key used to store the correlation id in the context
	CorrelationIDKey = "correlation_id"
)

// CorrelationID tags every request with an id that follows it through the
// request log, the response envelope and the error bodies. An id supplied by
// the caller is kept, so retries of the same transfer correlate across
// attempts; otherwise a fresh one is generated.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(CorrelationIDKey, id)
		c.Header(CorrelationIDHeader, id)

		c.Next()
	}
}

// GetCorrelationID retrieves the correlation id from the gin context.
// Returns the empty string when the CorrelationID middleware did not run.
func GetCorrelationID(c *gin.Context) string {
	if v, exists := c.Get(CorrelationIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
