package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resto_backend/internal/models"
	"resto_backend/internal/services"
	"resto_backend/pkg/utils"
)

// principalFromContext pulls the authenticated principal placed on the
// context by the auth middleware.
func principalFromContext(c *gin.Context) (services.Principal, bool) {
	userID, okID := c.Get("userID")
	role, okRole := c.Get("userRole")
	if !okID || !okRole {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "User not authenticated", "Missing principal in request context"))
		return services.Principal{}, false
	}
	return services.Principal{
		UserID: userID.(string),
		Role:   role.(models.Role),
	}, true
}

// pagination parses page/page_size query params with defaults.
func pagination(c *gin.Context) (int, int, bool) {
	page := 1
	pageSize := 10

	if pageStr := c.Query("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p <= 0 {
			utils.RespondValidationFailed(c, "page must be a positive integer")
			return 0, 0, false
		}
		page = p
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		ps, err := strconv.Atoi(pageSizeStr)
		if err != nil || ps <= 0 {
			utils.RespondValidationFailed(c, "page_size must be a positive integer")
			return 0, 0, false
		}
		pageSize = ps
	}
	return page, pageSize, true
}
