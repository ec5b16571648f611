package handlers

import (
	"github.com/gin-gonic/gin"

	errs "github.com/sportperformance/academy-api/pkg/errors"
	"github.com/sportperformance/academy-api/pkg/response"
	"github.com/sportperformance/academy-api/pkg/validator"
)

// bindAndValidate decodes the JSON body into T and runs struct validation.
// On failure it writes the error response and reports false.
func bindAndValidate[T any](c *gin.Context) (*T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errs.NewBadRequest("Invalid request payload"))
		return nil, false
	}

	if err := validator.ValidateStruct(&req); err != nil {
		response.Error(c, errs.NewBadRequest(err.Error()))
		return nil, false
	}

	return &req, true
}
