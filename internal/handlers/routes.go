package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"foodhub/internal/auth"
	"foodhub/internal/config"
	"foodhub/internal/media"
	"foodhub/internal/middleware"
	"foodhub/internal/models"
	"foodhub/internal/services"
)

// App bundles what the routes need. Redis and Media may be nil.
type App struct {
	DB        pinger
	Redis     *redis.Client
	Tokens    *auth.TokenService
	Auth      *services.AuthService
	Carts     *services.CartService
	Orders    *services.OrderService
	Catalog   *services.CatalogService
	Bikers    *services.BikerService
	Media     media.Store
	RateLimit config.RateLimitConfig
	// MpesaCallbackToken must match ?token= on M-Pesa callbacks.
	MpesaCallbackToken string
}

func SetupRoutes(r *gin.Engine, app App) {
	requireAuth := middleware.UserAuth(app.Tokens)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	backOffice := middleware.RequireRole(models.RoleAdmin, models.RoleStaff)
	limited := middleware.RateLimit(app.RateLimit, app.Redis)

	r.GET("/healthz", Health(app.DB, app.Redis))

	user := r.Group("/user")
	{
		user.POST("/register", limited, Register(app.Auth))
		user.POST("/login", limited, Login(app.Auth))
		user.POST("/refresh-token", limited, RefreshToken(app.Auth))
		user.GET("/verify-email", VerifyEmail(app.Auth))

		user.POST("/logout", requireAuth, Logout(app.Auth))
		user.POST("/logout-all", requireAuth, LogoutAll(app.Auth))
		user.GET("/profile", requireAuth, Profile(app.Auth))
		user.POST("/resend-verification", requireAuth, ResendVerification(app.Auth))
		user.POST("/status", requireAuth, adminOnly, SetUserStatus(app.Auth))
	}

	cart := r.Group("/cart")
	cart.Use(requireAuth)
	{
		cart.POST("/add", AddToCart(app.Carts))
		cart.POST("/remove", RemoveFromCart(app.Carts))
		cart.POST("/get", GetCart(app.Carts))
	}

	order := r.Group("/order")
	{
		order.POST("/verify", VerifyOrder(app.Orders))
		order.POST("/mpesa/callback", MpesaCallback(app.Orders, app.MpesaCallbackToken))

		order.POST("/place", requireAuth, PlaceOrder(app.Orders))
		order.POST("/userorders", requireAuth, UserOrders(app.Orders))

		order.GET("/list", requireAuth, backOffice, ListOrders(app.Orders))
		order.POST("/status", requireAuth, backOffice, UpdateOrderStatus(app.Orders))
		order.POST("/assign", requireAuth, backOffice, AssignBiker(app.Orders))
	}

	food := r.Group("/food")
	{
		food.GET("/list", ListFoods(app.Catalog))
		food.GET("/:id", GetFood(app.Catalog))

		food.POST("/add", requireAuth, adminOnly, AddFood(app.Catalog, app.Media))
		food.PUT("/:id", requireAuth, adminOnly, UpdateFood(app.Catalog, app.Media))
		food.POST("/:id/offer", requireAuth, adminOnly, SetFoodOffer(app.Catalog))
		food.POST("/remove", requireAuth, adminOnly, RemoveFood(app.Catalog))
	}

	biker := r.Group("/biker")
	biker.Use(requireAuth)
	{
		biker.GET("/list", backOffice, ListBikers(app.Bikers))
		biker.POST("/add", adminOnly, AddBiker(app.Bikers))
		biker.PUT("/:id", adminOnly, UpdateBiker(app.Bikers))
		biker.POST("/remove", adminOnly, RemoveBiker(app.Bikers))
	}
}
