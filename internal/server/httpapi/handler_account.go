package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/learnhub/internal/common"
	"github.com/dmitrijs2005/learnhub/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, &req) {
		return
	}

	res, err := s.accounts.Signup(c.Request.Context(), services.SignupInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.abortError(c, err)
		return
	}

	s.setPendingEmail(c, res.Email)
	respond(c, http.StatusOK, "please check your email to verify your account", gin.H{"email": res.Email})
}

func (s *HTTPServer) verifyAccount(c *gin.Context) {
	var req verifyRequest
	if !bind(c, &req) {
		return
	}

	email := cookie(c, common.PendingEmailCookieName)
	if err := s.accounts.VerifyAccount(c.Request.Context(), email, req.Code); err != nil {
		s.abortError(c, err)
		return
	}

	s.clearCookie(c, common.PendingEmailCookieName)
	respond(c, http.StatusOK, "your account has been verified", nil)
}

func (s *HTTPServer) resendVerification(c *gin.Context) {
	email := cookie(c, common.PendingEmailCookieName)
	if err := s.accounts.ResendVerification(c.Request.Context(), email); err != nil {
		s.abortError(c, err)
		return
	}

	s.setPendingEmail(c, email)
	respond(c, http.StatusOK, "a new verification code has been sent", nil)
}

func (s *HTTPServer) signin(c *gin.Context) {
	var req signinRequest
	if !bind(c, &req) {
		return
	}

	session, err := s.accounts.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.abortError(c, err)
		return
	}

	if req.RememberMe {
		s.setRemember(c, session.RefreshToken)
	}
	respond(c, http.StatusOK, "signed in", newTokenResponse(session))
}

func (s *HTTPServer) refreshToken(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}

	session, err := s.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.abortError(c, err)
		return
	}
	respond(c, http.StatusOK, "token refreshed", newTokenResponse(session))
}

func (s *HTTPServer) autoLogin(c *gin.Context) {
	token := cookie(c, common.RememberMeCookieName)
	if token == "" {
		abortWith(c, http.StatusUnauthorized, "no remembered session", nil)
		return
	}

	session, err := s.accounts.AutoLogin(c.Request.Context(), token)
	if err != nil {
		if se, ok := services.AsError(err); ok && se.Kind == services.KindUnauthorized {
			s.clearCookie(c, common.RememberMeCookieName)
		}
		s.abortError(c, err)
		return
	}

	s.setRemember(c, session.RefreshToken)
	respond(c, http.StatusOK, "signed in", newTokenResponse(session))
}

func (s *HTTPServer) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bind(c, &req) {
		return
	}

	if err := s.accounts.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		s.abortError(c, err)
		return
	}
	respond(c, http.StatusOK, "if an account exists for this email, a reset link has been sent", nil)
}

func (s *HTTPServer) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bind(c, &req) {
		return
	}

	err := s.accounts.ResetPassword(c.Request.Context(), services.ResetPasswordInput{
		Email:           req.Email,
		Code:            req.Code,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.abortError(c, err)
		return
	}
	respond(c, http.StatusOK, "your password has been reset, please sign in", nil)
}

func (s *HTTPServer) logout(c *gin.Context) {
	p, _ := principal(c)

	remember := cookie(c, common.RememberMeCookieName)
	if err := s.accounts.Logout(c.Request.Context(), p.Token, remember); err != nil {
		s.abortError(c, err)
		return
	}

	for _, ck := range c.Request.Cookies() {
		s.clearCookie(c, ck.Name)
	}
	respond(c, http.StatusOK, "signed out", nil)
}

func (s *HTTPServer) me(c *gin.Context) {
	p, _ := principal(c)

	user, err := s.accounts.Me(c.Request.Context(), p)
	if err != nil {
		s.abortError(c, err)
		return
	}
	respond(c, http.StatusOK, "ok", newUserResponse(user))
}
