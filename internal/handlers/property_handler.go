package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
	"github.com/joshua-takyi/homeswift/internal/services"
)

const defaultFeaturedLimit = 6

func ListProperties(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := query.Build(c.Request.URL.Query(), query.ListingOptions)
		if err != nil {
			respondError(c, err)
			return
		}
		props, total, err := ps.List(c.Request.Context(), d)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(props, d.Page, total))
	}
}

func FeaturedProperties(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultFeaturedLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, models.ValidationResponse("invalid query parameters", map[string]string{
					"limit": "must be a positive integer",
				}))
				return
			}
			limit = n
		}
		props, err := ps.Featured(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(props, ""))
	}
}

func GetProperty(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		meta := services.ViewMeta{
			SessionID: c.GetHeader("X-Session-ID"),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		if sid, err := c.Cookie(auth.SessionCookieName); err == nil && meta.SessionID == "" {
			meta.SessionID = sid
		}
		p, err := ps.Get(c.Request.Context(), id, principal(c), meta)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(p, ""))
	}
}

func CreateProperty(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in models.PropertyInput
		if !bindJSON(c, &in) {
			return
		}
		p, err := ps.Create(c.Request.Context(), principal(c), &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(p, "property created successfully"))
	}
}

func UpdateProperty(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		var in models.PropertyInput
		if !bindJSON(c, &in) {
			return
		}
		p, err := ps.Update(c.Request.Context(), principal(c), id, &in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(p, "property updated successfully"))
	}
}

func DeleteProperty(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		if err := ps.Delete(c.Request.Context(), principal(c), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "property deleted successfully"))
	}
}

func AddPropertyImages(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		var req struct {
			Images []models.ImageInput `json:"images" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		images, err := ps.AddImages(c.Request.Context(), principal(c), id, req.Images)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(images, "images added"))
	}
}

func DeletePropertyImage(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		imageID, ok := paramUUID(c, "imageId")
		if !ok {
			return
		}
		if err := ps.DeleteImage(c.Request.Context(), principal(c), id, imageID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "image deleted"))
	}
}

func SetPrimaryImage(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		imageID, ok := paramUUID(c, "imageId")
		if !ok {
			return
		}
		if err := ps.SetPrimaryImage(c.Request.Context(), principal(c), id, imageID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "primary image updated"))
	}
}

// intQuery reads an optional integer parameter within [lo, hi], answering
// 400 itself when it is out of range. Absent parameters yield 0.
func intQuery(c *gin.Context, name string, lo, hi int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		c.JSON(http.StatusBadRequest, models.ValidationResponse("invalid query parameters", map[string]string{
			name: fmt.Sprintf("must be an integer between %d and %d", lo, hi),
		}))
		return 0, false
	}
	return n, true
}

func PropertyStats(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		days, ok := intQuery(c, "days", 1, 365)
		if !ok {
			return
		}
		history, ok := intQuery(c, "history", 0, services.MaxViewHistory)
		if !ok {
			return
		}
		stats, err := ps.Stats(c.Request.Context(), principal(c), id, days, history)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(stats, ""))
	}
}

// AgentStats aggregates view analytics across one agent's listings.
func AgentStats(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		days, ok := intQuery(c, "days", 1, 365)
		if !ok {
			return
		}
		stats, err := ps.AgentStats(c.Request.Context(), principal(c), agentID, days)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(stats, ""))
	}
}

// ListAgentProperties lists one user's visible listings.
func ListAgentProperties(ps *services.PropertyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		d, err := query.Build(c.Request.URL.Query(), query.ListingOptions)
		if err != nil {
			respondError(c, err)
			return
		}
		props, total, err := ps.ListByAgent(c.Request.Context(), agentID, d)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(props, d.Page, total))
	}
}
