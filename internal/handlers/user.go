package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodhub/internal/middleware"
	"foodhub/internal/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type userStatusRequest struct {
	UserID   string `json:"userId" binding:"required"`
	IsActive *bool  `json:"isActive" binding:"required"`
}

func Register(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/register"
		defer handlePanic(c, route)

		var req services.RegisterInput
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.Register(ctx, req)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success":      true,
			"accessToken":  res.AccessToken,
			"refreshToken": res.RefreshToken,
			"user":         res.User,
		})
	}
}

func Login(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/login"
		defer handlePanic(c, route)

		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.Login(ctx, req.Email, req.Password)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"accessToken":  res.AccessToken,
			"refreshToken": res.RefreshToken,
			"user":         res.User,
		})
	}
}

func RefreshToken(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/refresh-token"
		defer handlePanic(c, route)

		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		res, err := svc.Refresh(ctx, req.RefreshToken)
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "accessToken": res.AccessToken, "user": res.User})
	}
}

// Logout always succeeds; an unknown token has nothing to revoke.
func Logout(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/logout"
		defer handlePanic(c, route)

		var req refreshRequest
		_ = c.ShouldBindJSON(&req)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.Logout(ctx, middleware.UserID(c), req.RefreshToken); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
	}
}

func LogoutAll(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/logout-all"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.LogoutAll(ctx, middleware.UserID(c)); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out from all devices"})
	}
}

func Profile(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/profile"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		user, err := svc.Profile(ctx, middleware.UserID(c))
		if err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
	}
}

func VerifyEmail(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /user/verify-email"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.VerifyEmail(ctx, c.Query("token")); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified"})
	}
}

func ResendVerification(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/resend-verification"
		defer handlePanic(c, route)

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.ResendVerification(ctx, middleware.UserID(c)); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Verification email sent"})
	}
}

func SetUserStatus(svc *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /user/status"
		defer handlePanic(c, route)

		var req userStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, route, err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		if err := svc.SetActive(ctx, req.UserID, *req.IsActive); err != nil {
			respondError(c, route, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
