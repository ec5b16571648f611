package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sportperformance/academy-api/internal/middleware"
	"github.com/sportperformance/academy-api/internal/services"
	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/response"
)

// AuthHandler exposes the OTP login flow and the authenticated principal.
type AuthHandler struct {
	otp *services.OtpService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(otp *services.OtpService) *AuthHandler {
	return &AuthHandler{otp: otp}
}

type requestOtpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,max=32"`
}

// RequestOtp issues a one-time code and dispatches it out-of-band. The
// response never reveals whether the email is known.
func (h *AuthHandler) RequestOtp(c *gin.Context) {
	req, ok := bindAndValidate[requestOtpRequest](c)
	if !ok {
		return
	}

	if err := h.otp.RequestOtp(c.Request.Context(), req.Email, req.Purpose); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": "A verification code has been sent if the address is reachable",
	})
}

type verifyOtpRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"required,max=32"`
	Code    string `json:"code" validate:"required,numeric,len=6"`
}

// VerifyOtp exchanges a valid code for an access token. Failures carry the
// correlation id so callers can reference server-side traces.
func (h *AuthHandler) VerifyOtp(c *gin.Context) {
	cid := correlationID(c)

	req, ok := bindAndValidate[verifyOtpRequest](c)
	if !ok {
		return
	}

	result, err := h.otp.VerifyOtp(c.Request.Context(), req.Email, req.Purpose, req.Code, cid)
	if err != nil {
		response.ErrorWithCorrelation(c, err, cid)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Me echoes the authenticated principal.
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, errs.ErrUnauthorized)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_number":    principal.UserNumber,
		"email":          principal.Email,
		"role":           principal.Role,
		"academy_number": principal.AcademyNumber,
	})
}
