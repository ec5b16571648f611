package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sportperformance/academy-api/internal/middleware"
	"github.com/sportperformance/academy-api/internal/services"
	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/response"
)

// AcademyHandler exposes academy provisioning and lookup.
type AcademyHandler struct {
	academies *services.AcademyService
}

// NewAcademyHandler constructs an AcademyHandler.
func NewAcademyHandler(academies *services.AcademyService) *AcademyHandler {
	return &AcademyHandler{academies: academies}
}

type createAcademyRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=120"`
	LogoURL      string `json:"logo_url" validate:"omitempty,url"`
	PrimaryColor string `json:"primary_color" validate:"omitempty,hexcolor"`
}

// Create provisions a new academy tenant.
func (h *AcademyHandler) Create(c *gin.Context) {
	req, ok := bindAndValidate[createAcademyRequest](c)
	if !ok {
		return
	}

	academy, err := h.academies.Create(c.Request.Context(), services.CreateAcademyInput{
		Name:         req.Name,
		LogoURL:      req.LogoURL,
		PrimaryColor: req.PrimaryColor,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, academy)
}

// Me returns the academy the authenticated principal belongs to.
func (h *AcademyHandler) Me(c *gin.Context) {
	principal, ok := middleware.PrincipalFromContext(c)
	if !ok {
		response.Error(c, errs.ErrUnauthorized)
		return
	}
	if principal.AcademyNumber == nil {
		response.Error(c, errs.ErrNotFound.WithMessage("Caller is not bound to an academy"))
		return
	}

	academy, err := h.academies.GetByNumber(c.Request.Context(), *principal.AcademyNumber)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, academy)
}
