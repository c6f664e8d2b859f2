package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"shop_back_end/internal/auth"
	"shop_back_end/internal/cache"
	"shop_back_end/internal/config"
	"shop_back_end/internal/database"
	"shop_back_end/internal/handlers"
	"shop_back_end/internal/logger"
	"shop_back_end/internal/repository"
	"shop_back_end/internal/routes"
	"shop_back_end/internal/search"
	"shop_back_end/internal/services"
)

const applicationName = "shop_back_end"

func main() {
	cfg := config.MustLoad()

	log := logger.New(logger.Options{
		Service:   applicationName,
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: cfg.AppEnv == "dev",
	})
	if !cfg.EnvFileLoaded {
		log.Warn("⚠️ Aucun fichier .env trouvé, utilisation des variables système")
	}

	if err := run(cfg, log); err != nil {
		log.Error("❌ arrêt du serveur", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns, err := database.Connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.Close()

	if err := database.Migrate(conns.DB); err != nil {
		return err
	}
	log.Info("✅ Migrations appliquées")

	index := search.NewProductIndex(conns.Elastic, search.DefaultIndex, log)
	if index.Enabled() {
		if err := index.EnsureIndex(ctx); err != nil {
			// La recherche retombe sur PostgreSQL tant que l'index est indisponible
			log.Warn("⚠️ Index Elasticsearch indisponible", slog.Any("error", err))
		}
	}

	engine, err := buildEngine(cfg, log, conns, index)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("🚀 Serveur lancé", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("arrêt en cours...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildEngine(cfg *config.Config, log *slog.Logger, conns *database.Connections, index *search.ProductIndex) (*gin.Engine, error) {
	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	hasher, err := auth.NewPasswordHasher(cfg.Password.Hasher, cfg.Password.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenService(cfg.JWT)
	if err != nil {
		return nil, err
	}

	// Stores
	tx := repository.NewTxManager(conns.DB)
	users := repository.NewUserRepository(conns.DB)
	products := repository.NewProductRepository(conns.DB)
	carts := repository.NewCartRepository(conns.DB)

	// Redis (nil : tout passe en mode dégradé)
	productCache := cache.NewProductCache(conns.Redis)
	cartEvents := cache.NewCartEvents(conns.Redis)
	loginLimiter := cache.NewRateLimiter(conns.Redis, "login", cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginCooldown)
	registerLimiter := cache.NewRateLimiter(conns.Redis, "register", cfg.RateLimit.RegisterMaxAttempts, cfg.RateLimit.RegisterCooldown)
	cartLimiter := cache.NewRateLimiter(conns.Redis, "cart_write", cfg.RateLimit.CartMaxWritesPerMinute, time.Minute)

	// Services
	authService := services.NewAuthService(users, tx, hasher, log)
	catalog := services.NewCatalogService(products, productCache, index, log)
	cartService := services.NewCartService(tx, carts, catalog, cartEvents, log)

	return routes.NewEngine(routes.Deps{
		Log:    log,
		Tokens: tokens,

		Auth:     handlers.NewAuthHandler(authService, tokens, log),
		Products: handlers.NewProductHandler(catalog, log),
		Cart:     handlers.NewCartHandler(cartService, cartEvents, cfg.CORSOrigins, log),
		Health:   handlers.NewHealthHandler(applicationName, pinger(conns.DB), catalog, log),

		LoginLimiter:    loginLimiter,
		RegisterLimiter: registerLimiter,
		CartLimiter:     cartLimiter,

		CORSOrigins:       cfg.CORSOrigins,
		CatalogPublicRead: cfg.CatalogPublicRead,
	}), nil
}

func pinger(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}
}
