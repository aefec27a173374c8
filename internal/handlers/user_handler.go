package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
	"github.com/joshua-takyi/homeswift/internal/services"
)

func GetProfile(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := u.GetProfile(c.Request.Context(), principal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, ""))
	}
}

func UpdateProfile(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.ProfileInput
		if !bindJSON(c, &in) {
			return
		}
		user, err := u.UpdateProfile(c.Request.Context(), principal(c).UserID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, "profile updated"))
	}
}

func ChangePassword(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			CurrentPassword string `json:"current_password"`
			NewPassword     string `json:"new_password" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		if err := a.ChangePassword(c.Request.Context(), principal(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "password updated"))
	}
}

func GetSearchHistory(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		history, err := u.SearchHistory(c.Request.Context(), principal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(history, ""))
	}
}

func ClearSearchHistory(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := u.ClearSearchHistory(c.Request.Context(), principal(c).UserID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "search history cleared"))
	}
}

// adminPage reads page and limit only; other parameters are ignored.
func adminPage(c *gin.Context) (query.Page, error) {
	values := url.Values{}
	for _, k := range []string{"page", "limit"} {
		if v, ok := c.GetQuery(k); ok {
			values.Set(k, v)
		}
	}
	d, err := query.Build(values, query.AdminOptions)
	return d.Page, err
}

func ListUsers(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := adminPage(c)
		if err != nil {
			respondError(c, err)
			return
		}
		users, total, err := u.ListUsers(c.Request.Context(), page)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(users, page, total))
	}
}

func SetUserRole(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		var req struct {
			Role string `json:"role" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		user, err := u.SetRole(c.Request.Context(), principal(c), id, req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(user, "role updated"))
	}
}
