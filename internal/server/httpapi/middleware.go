package httpapi

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"

	requestIDKey = "requestID"
	principalKey = "principal"
)

func (s *HTTPServer) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *HTTPServer) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

func (s *HTTPServer) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error(c.Request.Context(), "panic recovered",
			"panic", recovered,
			"request_id", c.GetString(requestIDKey),
		)
		abortInternal(c)
	})
}

func bearerToken(header string) (string, bool) {
	token, ok := strings.CutPrefix(header, common.BearerPrefix)
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// bearerFilter runs before every handler. A request that carries a bearer
// token is rejected unless the token is valid, unexpired and not blacklisted.
func (s *HTTPServer) bearerFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		p, err := s.accounts.Authenticate(c.Request.Context(), token)
		if err != nil {
			s.abortError(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

func principal(c *gin.Context) (*services.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*services.Principal)
	return p, ok
}

func (s *HTTPServer) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := principal(c); !ok {
			abortWith(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		c.Next()
	}
}

func (s *HTTPServer) requireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			abortWith(c, http.StatusUnauthorized, "authentication required", nil)
			return
		}
		if !slices.Contains(roles, p.Role) {
			abortWith(c, http.StatusForbidden, "you do not have permission to perform this action", nil)
			return
		}
		c.Next()
	}
}

// userIDParam answers 404 when the :id path segment is not a UUID.
func (s *HTTPServer) userIDParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.Param("id"); id != "" {
			if _, err := uuid.Parse(id); err != nil {
				abortWith(c, http.StatusNotFound, "user not found", nil)
				return
			}
		}
		c.Next()
	}
}
