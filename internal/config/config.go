package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MinJWTSecretLength : 256 bits pour HS256.
const MinJWTSecretLength = 32

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET manquant")
	ErrWeakJWTSecret    = fmt.Errorf("JWT_SECRET trop court (minimum %d octets)", MinJWTSecretLength)
)

// Config est construit une seule fois au démarrage, puis lu uniquement.
type Config struct {
	AppEnv   string
	LogLevel string
	Port     string

	// EnvFileLoaded indique si un fichier .env a été trouvé.
	EnvFileLoaded bool

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	RedisHost     string
	RedisPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	JWT      JWTConfig
	Password PasswordConfig

	CORSOrigins       []string
	CatalogPublicRead bool

	RateLimit RateLimitConfig
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type PasswordConfig struct {
	Hasher     string // "bcrypt" ou "argon2id"
	BcryptCost int
}

type RateLimitConfig struct {
	LoginMaxAttempts       int
	LoginCooldown          time.Duration
	RegisterMaxAttempts    int
	RegisterCooldown       time.Duration
	CartMaxWritesPerMinute int
}

// Load lit le .env (s'il existe) puis les variables d'environnement du système.
func Load() (*Config, error) {
	envLoaded := godotenv.Load(".env") == nil

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "dev"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Port:          getEnv("PORT", "8080"),
		EnvFileLoaded: envLoaded,

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),

		Password: PasswordConfig{
			Hasher:     strings.ToLower(getEnv("PASSWORD_HASHER", "bcrypt")),
			BcryptCost: getEnvInt("BCRYPT_COST", 10),
		},

		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		CatalogPublicRead: getEnvBool("CATALOG_PUBLIC_READ", false),

		RateLimit: RateLimitConfig{
			LoginMaxAttempts:       getEnvInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginCooldown:          getEnvDuration("LOGIN_COOLDOWN", 15*time.Minute),
			RegisterMaxAttempts:    getEnvInt("REGISTER_MAX_ATTEMPTS", 10),
			RegisterCooldown:       getEnvDuration("REGISTER_COOLDOWN", 30*time.Minute),
			CartMaxWritesPerMinute: getEnvInt("CART_MAX_WRITES_PER_MINUTE", 60),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL manquant")
	}

	jwtCfg, err := loadJWT()
	if err != nil {
		return nil, err
	}
	cfg.JWT = jwtCfg

	switch cfg.Password.Hasher {
	case "bcrypt", "argon2id":
	default:
		return nil, fmt.Errorf("PASSWORD_HASHER invalide: %q", cfg.Password.Hasher)
	}

	return cfg, nil
}

// MustLoad panique si la configuration est inutilisable.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("❌ configuration invalide: %v", err))
	}
	return cfg
}

func loadJWT() (JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if err := ValidateJWTSecret(secret); err != nil {
		return JWTConfig{}, err
	}

	expiration, err := parseExpiration(getEnv("JWT_EXPIRATION", "24h"))
	if err != nil {
		return JWTConfig{}, fmt.Errorf("JWT_EXPIRATION invalide: %w", err)
	}

	return JWTConfig{Secret: secret, Expiration: expiration}, nil
}

// ValidateJWTSecret refuse une clé de signature vide ou trop courte.
func ValidateJWTSecret(secret string) error {
	if secret == "" {
		return ErrMissingJWTSecret
	}
	if len(secret) < MinJWTSecretLength {
		return ErrWeakJWTSecret
	}
	return nil
}

// parseExpiration accepte une durée Go ("24h") ou un nombre de millisecondes ("86400000").
func parseExpiration(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		if ms <= 0 {
			return 0, errors.New("doit être positif")
		}
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("doit être positif")
	}
	return d, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
