package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sics-enrollment-api/internal/middleware"
	"github.com/noah-isme/sics-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sics-enrollment-api/pkg/errors"
	"github.com/noah-isme/sics-enrollment-api/pkg/response"
)

// principal returns the authenticated caller, answering 401 when there is none.
func principal(c *gin.Context) (*models.JWTClaims, bool) {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

// bindJSON decodes the body into dst, answering 400 with message on failure.
func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func clientOf(c *gin.Context) models.ClientMeta {
	return models.ClientMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
