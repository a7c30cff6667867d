package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request ID between client and server.
	Header = "X-Request-ID"

	ginKey = "request_id"
)

// Middleware tags every request with an ID. A client-supplied ID is
// kept so traces can span services; otherwise a fresh UUID is minted.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(ginKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value reads the request ID previously stored by Middleware. Returns
// the empty string when the middleware did not run.
func Value(c *gin.Context) string {
	id, _ := c.Value(ginKey).(string)
	return id
}
