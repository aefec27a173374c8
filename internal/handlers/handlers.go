package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/middleware"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/query"
	"github.com/joshua-takyi/homeswift/internal/services"
)

func isProduction() bool {
	return gin.Mode() == gin.ReleaseMode
}

// respondError maps service and repository errors onto status codes.
// Unexpected errors are attached to the context for ErrorHandler to log
// and only their text is withheld in production.
func respondError(c *gin.Context, err error) {
	var qErr *query.ValidationError
	var vErrs validator.ValidationErrors
	switch {
	case errors.As(err, &qErr):
		c.JSON(http.StatusBadRequest, models.ValidationResponse("invalid query parameters", qErr.Fields))
	case errors.As(err, &vErrs):
		c.JSON(http.StatusBadRequest, models.ValidationResponse("validation failed", validationFields(vErrs)))
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, services.ErrWeakPassword),
		errors.Is(err, services.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, models.ErrorResponse(err.Error()))
	case errors.Is(err, auth.ErrNoCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("authentication required"))
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("invalid credentials"))
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse("you do not have permission to perform this action"))
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse("resource not found"))
	case errors.Is(err, models.ErrAlreadyExists):
		c.JSON(http.StatusConflict, models.ErrorResponse("resource already exists"))
	case errors.Is(err, services.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse(err.Error()))
	default:
		_ = c.Error(err)
		msg := "Internal server error"
		if !isProduction() {
			msg = err.Error()
		}
		res := models.ErrorResponse(msg)
		res.RequestID = c.GetString(middleware.RequestIDKey)
		c.JSON(http.StatusInternalServerError, res)
	}
}

func validationFields(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		msg := "failed on " + fe.Tag()
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "email":
			msg = "must be a valid email address"
		case "oneof":
			msg = "must be one of: " + fe.Param()
		case "max", "lte":
			msg = "must be at most " + fe.Param()
		case "min", "gte":
			msg = "must be at least " + fe.Param()
		}
		fields[fe.Field()] = msg
	}
	return fields
}

// bindJSON decodes the request body, answering 400 itself on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			c.JSON(http.StatusBadRequest, models.ValidationResponse("validation failed", validationFields(vErrs)))
			return false
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse("invalid request payload"))
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := strings.Trim(strings.TrimSpace(c.Param(name)), "\"'")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse(fmt.Sprintf("invalid %s format", name)))
		return uuid.Nil, false
	}
	return id, true
}

func principal(c *gin.Context) *auth.Principal {
	return middleware.CurrentUser(c)
}

func clientMeta(c *gin.Context) services.ClientMeta {
	return services.ClientMeta{UserAgent: c.Request.UserAgent(), IP: c.ClientIP()}
}

func setCookie(c *gin.Context, name, value string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", isProduction(), true)
}

func clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", isProduction(), true)
}

// Health reports liveness plus the state of each configured dependency.
func Health(checks map[string]func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "up"
		}
		res := models.SuccessResponse(gin.H{
			"status":       http.StatusText(status),
			"dependencies": deps,
			"time":         time.Now().UTC(),
		}, "")
		res.Success = status == http.StatusOK
		c.JSON(status, res)
	}
}
