package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sportperformance/academy-api/internal/middleware"
	"github.com/sportperformance/academy-api/internal/services"
	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/response"
)

// InviteHandler exposes invite issuance and redemption.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler constructs an InviteHandler.
func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type createInviteRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Role           string `json:"role" validate:"required"`
	ExpiresInHours int    `json:"expires_in_hours" validate:"required,gt=0"`
}

// Create issues an invite scoped to the caller's academy.
func (h *InviteHandler) Create(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, errs.ErrUnauthorized)
		return
	}
	if principal.AcademyNumber == nil {
		response.Error(c, errs.ErrForbidden.WithMessage("Caller is not bound to an academy"))
		return
	}

	req, ok := bindAndValidate[createInviteRequest](c)
	if !ok {
		return
	}

	created, err := h.invites.CreateInvite(c.Request.Context(), *principal.AcademyNumber, req.Email, req.Role, req.ExpiresInHours)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// inviteView is the redacted invite representation shown during preview.
type inviteView struct {
	AcademyNumber int64  `json:"academy_number"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	ExpiresAt     string `json:"expires_at"`
}

// Get previews a pending invite by its token.
func (h *InviteHandler) Get(c *gin.Context) {
	invite, err := h.invites.ResolveInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, inviteView{
		AcademyNumber: invite.AcademyNumber,
		Email:         invite.Email,
		Role:          invite.Role,
		ExpiresAt:     invite.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

type acceptInviteRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Accept redeems an invite for the supplied email.
func (h *InviteHandler) Accept(c *gin.Context) {
	req, ok := bindAndValidate[acceptInviteRequest](c)
	if !ok {
		return
	}

	accepted, err := h.invites.AcceptInvite(c.Request.Context(), c.Param("token"), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, accepted)
}
