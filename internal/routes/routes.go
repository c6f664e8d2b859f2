package routes

import (
	"log/slog"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"shop_back_end/internal/handlers"
	"shop_back_end/internal/middleware"
)

// Deps regroupe tout ce dont la table de routes a besoin; construit dans cmd/server.
type Deps struct {
	Log    *slog.Logger
	Tokens middleware.TokenVerifier

	Auth     *handlers.AuthHandler
	Products *handlers.ProductHandler
	Cart     *handlers.CartHandler
	Health   *handlers.HealthHandler

	LoginLimiter    middleware.AttemptLimiter
	RegisterLimiter middleware.AttemptLimiter
	CartLimiter     middleware.WindowLimiter

	CORSOrigins       []string
	CatalogPublicRead bool
}

func NewEngine(deps Deps) *gin.Engine {
	r := gin.New()
	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(
		middleware.Recovery(deps.Log),
		middleware.RequestID(),
		middleware.RequestLogger(deps.Log),
		cors.New(corsConfig(deps.CORSOrigins)),
		middleware.Authenticate(deps.Tokens, deps.Log),
	)

	// Health (public)
	r.GET("/health", deps.Health.Health)
	r.GET("/health/db", deps.Health.Database)

	api := r.Group("/api")

	// Auth (public)
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", middleware.RegisterRateLimit(deps.RegisterLimiter, deps.Log), deps.Auth.Register)
		authGroup.POST("/login", middleware.LoginRateLimit(deps.LoginLimiter, deps.Log), deps.Auth.Login)
		authGroup.POST("/logout", deps.Auth.Logout)
	}

	// Products : lecture publique seulement si CATALOG_PUBLIC_READ
	products := api.Group("/products")
	{
		read := products.Group("")
		if !deps.CatalogPublicRead {
			read.Use(middleware.RequireAuth())
		}
		read.GET("", deps.Products.ListProducts)
		read.GET("/search", deps.Products.SearchProducts)
		read.GET("/:id", deps.Products.GetProduct)

		write := products.Group("", middleware.RequireAuth())
		write.POST("", deps.Products.CreateProduct)
		write.PUT("/:id", deps.Products.UpdateProduct)
		write.PATCH("/:id", deps.Products.PatchProduct)
		write.DELETE("/:id", deps.Products.DeleteProduct)
	}

	// Cart (protégé)
	cart := api.Group("/cart", middleware.RequireAuth())
	{
		limited := middleware.CartRateLimit(deps.CartLimiter, deps.Log)

		cart.GET("", deps.Cart.GetCart)
		cart.GET("/ws", deps.Cart.CartWebSocket)
		cart.POST("", limited, deps.Cart.AddToCart)
		cart.PUT("/:productId", limited, deps.Cart.UpdateQuantity)
		cart.DELETE("/:productId", limited, deps.Cart.RemoveFromCart)
		cart.DELETE("", deps.Cart.ClearCart)
		cart.POST("/checkout", deps.Cart.Checkout)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
