package httpapi

import (
	"math"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/learnhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

// envelope is the body of every response.
type envelope struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Message: message, Status: status, Data: data})
}

func abortWith(c *gin.Context, status int, message string, data any) {
	c.AbortWithStatusJSON(status, envelope{Message: message, Status: status, Data: data})
}

func abortInternal(c *gin.Context) {
	abortWith(c, http.StatusInternalServerError, "internal error", nil)
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation, services.KindAuthentication, services.KindConflict:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// abortError writes err to the client. Only *services.Error messages are
// shown; anything else is logged and answered with a generic 500.
func (s *HTTPServer) abortError(c *gin.Context, err error) {
	se, ok := services.AsError(err)
	if !ok {
		s.logger.Error(c.Request.Context(), "request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
			"error", err,
		)
		abortInternal(c)
		return
	}

	if se.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(se.RetryAfter.Seconds()))))
	}
	abortWith(c, statusFor(se.Kind), se.Message, nil)
}
