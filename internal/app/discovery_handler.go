package app

import (
	"net/http"

	"langbuddy/internal/service"
	"langbuddy/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type DiscoveryHandler struct {
	discoveryService service.DiscoveryService
	validate         *validator.Validate
}

func NewDiscoveryHandler(discoveryService service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		validate:         validator.New(),
	}
}

// Discover handles partner search and recommendations
// GET /api/v1/discover?q=&native_language=&learning_language=&location=
func (h *DiscoveryHandler) Discover(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var filters service.DiscoveryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		util.BadRequest(c, err.Error())
		return
	}
	if err := h.validate.Struct(filters); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	query := c.Query("q")

	results, err := h.discoveryService.Discover(c.Request.Context(), userID.(string), query, filters)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Candidates retrieved successfully", gin.H{
		"results": results,
		"total":   len(results),
	})
}
