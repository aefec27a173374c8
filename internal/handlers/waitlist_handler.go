package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/services"
)

func JoinWaitlist(w *services.WaitlistService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.WaitlistInput
		if !bindJSON(c, &in) {
			return
		}
		entry, err := w.Join(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(entry, "you're on the list"))
	}
}

func WaitlistCount(w *services.WaitlistService) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := w.Count(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{"count": count}, ""))
	}
}

func ListWaitlist(w *services.WaitlistService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := adminPage(c)
		if err != nil {
			respondError(c, err)
			return
		}
		entries, total, err := w.List(c.Request.Context(), page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(entries, page, total))
	}
}
