package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
	"github.com/joshua-takyi/homeswift/internal/services"
)

func Search(s *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		values := c.Request.URL.Query()
		d, err := query.Build(values, query.SearchOptions)
		if err != nil {
			respondError(c, err)
			return
		}
		props, total, err := s.Search(c.Request.Context(), principal(c), d, searchFilters(values))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.PaginatedResponse(props, d.Page, total))
	}
}

// searchFilters is the query string minus the term and paging, as kept in
// search history.
func searchFilters(values url.Values) string {
	filters := url.Values{}
	for k, v := range values {
		switch k {
		case "q", "search", "page", "limit":
			continue
		}
		filters[k] = v
	}
	return filters.Encode()
}

func Suggestions(s *services.SearchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		prefix := c.Query("q")
		if prefix == "" {
			prefix = c.Query("city")
		}
		cities, err := s.Suggestions(c.Request.Context(), prefix)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(cities, ""))
	}
}
