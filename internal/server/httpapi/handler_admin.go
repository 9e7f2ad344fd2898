package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) searchUsers(c *gin.Context) {
	users, err := s.admin.Search(c.Request.Context(), c.Query("email"))
	if err != nil {
		s.abortError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, newUserResponse(u))
	}
	respond(c, http.StatusOK, "ok", out)
}

func (s *HTTPServer) getUser(c *gin.Context) {
	user, err := s.admin.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", newUserResponse(user))
}

func (s *HTTPServer) userActions(c *gin.Context) {
	actions, err := s.admin.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortError(c, err)
		return
	}

	out := make([]adminActionResponse, 0, len(actions))
	for _, a := range actions {
		out = append(out, adminActionResponse{
			ID:        a.ID,
			AdminID:   a.AdminID,
			Action:    a.Action,
			Details:   a.Details,
			CreatedAt: a.CreatedAt,
		})
	}
	respond(c, http.StatusOK, "ok", out)
}

func (s *HTTPServer) changeRole(c *gin.Context) {
	var req changeRoleRequest
	if !bind(c, &req) {
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		abortWith(c, http.StatusBadRequest, "unknown role", nil)
		return
	}

	admin, _ := principal(c)
	user, err := s.admin.ChangeRole(c.Request.Context(), admin, c.Param("id"), role)
	if err != nil {
		s.abortError(c, err)
		return
	}
	respond(c, http.StatusOK, "role updated", newUserResponse(user))
}

type adminMutation func(ctx context.Context, admin *services.Principal, targetID string) (*models.User, error)

// mutateUser adapts an id-only admin operation to a handler.
func (s *HTTPServer) mutateUser(op adminMutation, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, _ := principal(c)
		user, err := op(c.Request.Context(), admin, c.Param("id"))
		if err != nil {
			s.abortError(c, err)
			return
		}
		respond(c, http.StatusOK, message, newUserResponse(user))
	}
}

func (s *HTTPServer) deleteUser(c *gin.Context) {
	s.mutateUser(s.admin.Delete, "user deleted")(c)
}

func (s *HTTPServer) restoreUser(c *gin.Context) {
	s.mutateUser(s.admin.Restore, "user restored")(c)
}

func (s *HTTPServer) disableUser(c *gin.Context) {
	s.mutateUser(s.admin.Disable, "user disabled")(c)
}

func (s *HTTPServer) enableUser(c *gin.Context) {
	s.mutateUser(s.admin.Enable, "user enabled")(c)
}
