package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/completion-report-api/internal/middleware"
	"github.com/noah-isme/completion-report-api/internal/models"
	appErrors "github.com/noah-isme/completion-report-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// requireViewer returns the authenticated viewer or an UNAUTHORIZED error.
func requireViewer(c *gin.Context) (*models.JWTClaims, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return claims, nil
}

func int64Param(c *gin.Context, name string) (int64, error) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || value <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return value, nil
}
