package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hazmat-api/internal/middleware"
	"github.com/noah-isme/hazmat-api/internal/models"
	"github.com/noah-isme/hazmat-api/internal/workflow"
	appErrors "github.com/noah-isme/hazmat-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext resolves the caller or reports an unauthorized error.
func actorFromContext(c *gin.Context) (workflow.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return workflow.Actor{}, appErrors.ErrUnauthorized
	}
	return workflow.Actor{ID: claims.UserID, Name: claims.FullName, Role: claims.Role}, nil
}

func splitQuery(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func pageParams(c *gin.Context) (int, int) {
	page, size := 0, 0
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		size = v
	}
	return page, size
}
