package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
	"github.com/joshua-takyi/homeswift/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"query validation", &query.ValidationError{Fields: map[string]string{"minPrice": "must be a number"}}, http.StatusBadRequest},
		{"invalid input", fmt.Errorf("images: %w", models.ErrInvalidInput), http.StatusBadRequest},
		{"weak password", services.ErrWeakPassword, http.StatusBadRequest},
		{"bad token", fmt.Errorf("reset: %w", services.ErrInvalidToken), http.StatusBadRequest},
		{"no credentials", auth.ErrNoCredentials, http.StatusUnauthorized},
		{"invalid credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", fmt.Errorf("manage property: %w", models.ErrForbidden), http.StatusForbidden},
		{"not found", fmt.Errorf("get property: %w", models.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("create user: %w: email", models.ErrAlreadyExists), http.StatusConflict},
		{"unavailable", fmt.Errorf("oauth: %w", services.ErrUnavailable), http.StatusServiceUnavailable},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			var res models.ApiResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.False(t, res.Success)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestRespondError_QueryFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := query.Build(url.Values{"minPrice": {"cheap"}, "propertyType": {"castle"}}, query.ListingOptions)
	require.Error(t, err)
	respondError(c, err)

	var res models.ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Fields, "minPrice")
	assert.Contains(t, res.Fields, "propertyType")
}

func TestRespondError_HidesDetailInProduction(t *testing.T) {
	gin.SetMode(gin.ReleaseMode)
	defer gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "req-1")

	respondError(c, errors.New("pq: password authentication failed"))

	var res models.ApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Internal server error", res.Error)
	assert.Equal(t, "req-1", res.RequestID)
	assert.Len(t, c.Errors, 1)
}

func TestSearchFilters(t *testing.T) {
	values := url.Values{
		"q":        {"ocean view"},
		"page":     {"2"},
		"limit":    {"5"},
		"city":     {"Accra"},
		"minPrice": {"1000"},
	}
	assert.Equal(t, "city=Accra&minPrice=1000", searchFilters(values))
}

func TestParamUUID(t *testing.T) {
	r := gin.New()
	r.GET("/p/:id", func(c *gin.Context) {
		id, ok := paramUUID(c, "id")
		if !ok {
			return
		}
		c.String(http.StatusOK, id.String())
	})

	const id = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	for _, path := range []string{"/p/" + id, "/p/%22" + id + "%22"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, id, w.Body.String())
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p/42", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	checks := map[string]func(ctx context.Context) error{
		"postgres": func(context.Context) error { return nil },
	}
	r := gin.New()
	r.GET("/health", Health(checks))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	checks["redis"] = func(context.Context) error { return errors.New("dial tcp: refused") }
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var res struct {
		Success bool `json:"success"`
		Data    struct {
			Dependencies map[string]string `json:"dependencies"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "down", res.Data.Dependencies["redis"])
	assert.Equal(t, "up", res.Data.Dependencies["postgres"])
}
