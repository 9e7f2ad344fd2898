package httpapi

import (
	"time"

	"github.com/dmitrijs2005/learnhub/internal/server/models"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
)

type signupRequest struct {
	FullName        string `json:"fullName" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type verifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type signinRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type tokenResponse struct {
	Token          string      `json:"token"`
	Expired        time.Time   `json:"expired"`
	Role           models.Role `json:"role"`
	RefreshToken   string      `json:"refreshToken"`
	RefreshExpired time.Time   `json:"refreshExpired"`
}

func newTokenResponse(s *services.Session) tokenResponse {
	return tokenResponse{
		Token:          s.AccessToken,
		Expired:        s.AccessExpires,
		Role:           s.User.Role,
		RefreshToken:   s.RefreshToken,
		RefreshExpired: s.RefreshExpires,
	}
}

type userResponse struct {
	ID                string      `json:"id"`
	FullName          string      `json:"fullName"`
	Email             string      `json:"email"`
	Role              models.Role `json:"role"`
	IsActive          bool        `json:"isActive"`
	IsDeleted         bool        `json:"isDeleted"`
	IsSystemProtected bool        `json:"isSystemProtected"`
	CreatedAt         time.Time   `json:"createdAt"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:                u.ID,
		FullName:          u.FullName,
		Email:             u.Email,
		Role:              u.Role,
		IsActive:          u.IsActive,
		IsDeleted:         u.IsDeleted,
		IsSystemProtected: u.IsSystemProtected,
		CreatedAt:         u.CreatedAt,
	}
}

type adminActionResponse struct {
	ID        int64     `json:"id"`
	AdminID   string    `json:"adminId"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
