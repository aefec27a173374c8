package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/homeswift/internal/auth"
	"github.com/joshua-takyi/homeswift/internal/models"
	"github.com/joshua-takyi/homeswift/internal/services"
)

const refreshCookieTTL = 30 * 24 * time.Hour

func Register(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.RegisterInput
		if !bindJSON(c, &in) {
			return
		}
		u, err := a.Register(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, models.SuccessResponse(u, "account created, check your email to verify it"))
	}
}

func loginResponse(c *gin.Context, res *services.AuthResult, message string) {
	setCookie(c, auth.SessionCookieName, res.SessionID, res.SessionExpires)
	c.JSON(http.StatusOK, models.SuccessResponse(res, message))
}

func Login(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		res, err := a.Login(c.Request.Context(), req.Email, req.Password, clientMeta(c))
		if err != nil {
			respondError(c, err)
			return
		}
		loginResponse(c, res, "logged in")
	}
}

func Logout(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, _ := c.Cookie(auth.SessionCookieName)
		if p := principal(c); p != nil && p.SessionID != "" {
			sid = p.SessionID
		}
		sbToken, _ := c.Cookie(auth.SupabaseCookieName)

		if err := a.Logout(c.Request.Context(), sid, sbToken); err != nil {
			respondError(c, err)
			return
		}
		clearCookie(c, auth.SessionCookieName)
		clearCookie(c, auth.SupabaseCookieName)
		clearCookie(c, auth.RefreshCookieName)
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "logged out successfully"))
	}
}

func Me(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := a.Me(c.Request.Context(), principal(c).UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(u, ""))
	}
}

func ForgotPassword(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email string `json:"email" binding:"required,email"`
		}
		if !bindJSON(c, &req) {
			return
		}
		if _, err := a.ForgotPassword(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "if that email is registered, a reset link has been sent"))
	}
}

func ResetPassword(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Token    string `json:"token" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}
		if err := a.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(nil, "password has been reset, please log in"))
	}
}

func VerifyEmail(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := a.VerifyEmail(c.Request.Context(), c.Query("token"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(u, "email verified"))
	}
}

// Refresh rotates the managed Supabase session held in cookies.
func Refresh(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		rt, _ := c.Cookie(auth.RefreshCookieName)
		if rt == "" {
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			_ = c.ShouldBindJSON(&req)
			rt = req.RefreshToken
		}
		res, err := a.Refresh(c.Request.Context(), rt)
		if err != nil {
			respondError(c, err)
			return
		}
		setCookie(c, auth.SupabaseCookieName, res.AccessToken, time.Now().Add(time.Duration(res.ExpiresIn)*time.Second))
		setCookie(c, auth.RefreshCookieName, res.RefreshToken, time.Now().Add(refreshCookieTTL))
		c.JSON(http.StatusOK, models.SuccessResponse(gin.H{
			"expires_in": res.ExpiresIn,
			"expires_at": res.ExpiresAt,
		}, "session refreshed"))
	}
}

// OAuthRedirect initiates the provider flow via Supabase
func OAuthRedirect(a *services.AuthService, frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		redirectTo := c.Query("redirect_to")
		if redirectTo == "" {
			redirectTo = frontendURL + "/auth/callback"
		}
		authURL, err := a.OAuthURL(c.Param("provider"), redirectTo)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, authURL)
	}
}

// OAuthCallback forwards the provider result to the frontend. Supabase
// returns tokens in the URL fragment, which only the browser can read; the
// frontend then posts them to OAuthSession.
func OAuthCallback(frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if e := c.Query("error"); e != "" {
			q := url.Values{}
			q.Set("error", e)
			q.Set("error_description", c.Query("error_description"))
			c.Redirect(http.StatusTemporaryRedirect, frontendURL+"/auth/signin?"+q.Encode())
			return
		}
		c.Redirect(http.StatusTemporaryRedirect, frontendURL+"/auth/callback")
	}
}

// OAuthSession exchanges a Supabase access token for a local session.
func OAuthSession(a *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			ExpiresIn    int    `json:"expires_in"`
		}
		_ = c.ShouldBindJSON(&req)
		if req.AccessToken == "" {
			req.AccessToken, _ = c.Cookie(auth.SupabaseCookieName)
		}
		if strings.TrimSpace(req.AccessToken) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse("access_token is required"))
			return
		}

		res, err := a.OAuthSession(c.Request.Context(), req.AccessToken, clientMeta(c))
		if err != nil {
			respondError(c, err)
			return
		}
		if req.ExpiresIn > 0 {
			setCookie(c, auth.SupabaseCookieName, req.AccessToken, time.Now().Add(time.Duration(req.ExpiresIn)*time.Second))
		}
		if req.RefreshToken != "" {
			setCookie(c, auth.RefreshCookieName, req.RefreshToken, time.Now().Add(refreshCookieTTL))
		}
		loginResponse(c, res, "logged in")
	}
}
