package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", s.opts.CookieSecure, true)
}

func (s *HTTPServer) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", s.opts.CookieSecure, true)
}

func (s *HTTPServer) setPendingEmail(c *gin.Context, email string) {
	s.setCookie(c, common.PendingEmailCookieName, email, s.opts.PendingEmailTTL)
}

func (s *HTTPServer) setRemember(c *gin.Context, refreshToken string) {
	s.setCookie(c, common.RememberMeCookieName, refreshToken, s.opts.RememberTTL)
}

// cookie returns the value of name or "" when absent.
func cookie(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}
