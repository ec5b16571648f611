package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const correlationHeader = "X-Correlation-Id"

// correlationID returns the caller-supplied correlation id, generating one
// when absent. The id is echoed back on the response.
func correlationID(c *gin.Context) string {
	id := c.GetHeader(correlationHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(correlationHeader, id)
	return id
}
