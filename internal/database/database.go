package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shop_back_end/internal/config"
)

// Connections regroupe les clients ouverts au démarrage.
// Redis et Elastic valent nil quand ils ne sont pas configurés.
type Connections struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Elastic *elasticsearch.Client
}

// --- Initialisation ---
func Connect(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Connections, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// 1. PostgreSQL
	db, err := OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connexion PostgreSQL: %w", err)
	}
	log.Info("✅ Connecté à PostgreSQL")

	conns := &Connections{DB: db}

	// 2. Redis (optionnel)
	if cfg.RedisHost != "" {
		rdb, err := connectRedis(ctx, cfg)
		if err != nil {
			conns.Close()
			return nil, fmt.Errorf("connexion Redis: %w", err)
		}
		conns.Redis = rdb
		log.Info("✅ Connecté à Redis", slog.String("addr", cfg.RedisHost))
	} else {
		log.Warn("⚠️ REDIS_HOST absent, cache et rate limiting désactivés")
	}

	// 3. Elasticsearch (optionnel)
	if cfg.ElasticURL != "" {
		es, err := connectElastic(cfg)
		if err != nil {
			conns.Close()
			return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
		}
		conns.Elastic = es
		log.Info("✅ Connecté à Elasticsearch")
	} else {
		log.Warn("⚠️ ELASTIC_URL absent, la recherche passe par PostgreSQL")
	}

	return conns, nil
}

// =============================================
// POSTGRESQL (gorm)
// =============================================

func OpenPostgres(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Warn),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Ping vérifie que la base répond.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// =============================================
// REDIS
// =============================================

func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisHost,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// =============================================
// ELASTICSEARCH
// =============================================

func connectElastic(cfg *config.Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, err
	}

	res, err := client.Info()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("réponse Elasticsearch: %s", res.Status())
	}
	return client, nil
}

// Close ferme toutes les connexions ouvertes.
func (c *Connections) Close() {
	if c.Redis != nil {
		c.Redis.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
