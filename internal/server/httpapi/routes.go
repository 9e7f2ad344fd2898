package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) routes() *gin.Engine {
	r := gin.New()

	r.Use(s.requestID(), s.accessLog(), s.recovery())
	r.Use(cors.New(s.corsConfig()))
	r.Use(s.bearerFilter())

	r.GET("/ping", func(c *gin.Context) {
		respond(c, http.StatusOK, "pong", nil)
	})

	r.POST("/signup", s.signup)
	r.POST("/verify-account", s.verifyAccount)
	r.POST("/resend-verification-code", s.resendVerification)
	r.POST("/signin", s.signin)
	r.POST("/refresh-token", s.refreshToken)
	r.GET("/auto-login", s.autoLogin)
	r.POST("/forget-password", s.forgotPassword)
	r.POST("/reset-password", s.resetPassword)

	authed := r.Group("/", s.requireAuth())
	authed.POST("/logout", s.logout)
	authed.GET("/me", s.me)

	admin := r.Group("/admin", s.requireAuth(), s.requireRole(models.RoleAdmin), s.userIDParam())
	admin.GET("/users", s.searchUsers)
	admin.GET("/users/:id", s.getUser)
	admin.GET("/users/:id/actions", s.userActions)
	admin.POST("/users/:id/role", s.changeRole)
	admin.DELETE("/users/:id", s.deleteUser)
	admin.POST("/users/:id/restore", s.restoreUser)
	admin.POST("/users/:id/disable", s.disableUser)
	admin.POST("/users/:id/enable", s.enableUser)

	return r
}

func (s *HTTPServer) corsConfig() cors.Config {
	allowed := map[string]bool{}
	for _, o := range s.opts.AllowedOrigins {
		if o != "" {
			allowed[o] = true
		}
	}
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}
