package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/services"
)

func SaveProperty(s *services.SavedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID, ok := paramUUID(c, "propertyId")
		if !ok {
			return
		}
		var req struct {
			Note string `json:"note" binding:"max=500"`
		}
		if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
			return
		}
		item, err := s.Save(c.Request.Context(), principal(c).UserID, propertyID, req.Note)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(item, "property saved"))
	}
}

func UnsaveProperty(s *services.SavedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		propertyID, ok := paramUUID(c, "propertyId")
		if !ok {
			return
		}
		if err := s.Unsave(c.Request.Context(), principal(c).UserID, propertyID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "property removed from saved"))
	}
}

func ListSaved(s *services.SavedService) gin.HandlerFunc {
	return func(c *gin.Context) {
		saved, err := s.List(c.Request.Context(), principal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(saved, ""))
	}
}
