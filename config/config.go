package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver string
	DBDSN    string

	JWTSecret      string
	AllowedOrigins []string
	AuthRatePerMin int

	RedisAddr    string
	MenuCacheTTL time.Duration

	LogLevel           string
	LogFormat          string
	LogMongoURI        string
	LogMongoDB         string
	LogMongoCollection string
	LogMongoLevel      string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	RestaurantLat    float64
	RestaurantLng    float64
	DeliveryRadiusKm float64

	UploadDir string
}

// Load reads .env (if present) and then the process environment.
// The returned bool reports whether a .env file was loaded.
func Load() (*Config, bool) {
	loaded := godotenv.Load() == nil

	cfg := &Config{
		Port:    Get("PORT", "8080"),
		GinMode: Get("GIN_MODE", ""),

		DBDriver: strings.ToLower(Get("DB_DRIVER", "sqlite")),
		DBDSN:    Get("DB_DSN", "steamybites.db"),

		JWTSecret:      Get("JWT_SECRET", ""),
		AllowedOrigins: splitList(Get("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		AuthRatePerMin: GetInt("AUTH_RATE_PER_MIN", 20),

		RedisAddr:    Get("REDIS_ADDR", ""),
		MenuCacheTTL: GetDuration("MENU_CACHE_TTL", 5*time.Minute),

		LogLevel:           Get("LOG_LEVEL", "info"),
		LogFormat:          Get("LOG_FORMAT", "text"),
		LogMongoURI:        Get("LOG_MONGO_URI", ""),
		LogMongoDB:         Get("LOG_MONGO_DB", "steamybites"),
		LogMongoCollection: Get("LOG_MONGO_COLLECTION", "app_logs"),
		LogMongoLevel:      Get("LOG_MONGO_LEVEL", "warn"),

		AdminName:     Get("ADMIN_NAME", "Administrator"),
		AdminEmail:    Get("ADMIN_EMAIL", ""),
		AdminPassword: Get("ADMIN_PASSWORD", ""),

		RestaurantLat:    GetFloat("RESTAURANT_LAT", 0),
		RestaurantLng:    GetFloat("RESTAURANT_LNG", 0),
		DeliveryRadiusKm: GetFloat("DELIVERY_RADIUS_KM", 0),

		UploadDir: Get("UPLOAD_DIR", "public/uploads"),
	}
	return cfg, loaded
}

// DeliveryRadiusEnabled reports whether checkout should enforce the delivery radius.
func (c *Config) DeliveryRadiusEnabled() bool {
	return c.DeliveryRadiusKm > 0 && (c.RestaurantLat != 0 || c.RestaurantLng != 0)
}

func Get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func GetInt(key string, fallback int) int {
	n, err := strconv.Atoi(Get(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func GetFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(Get(key, ""), 64)
	if err != nil {
		return fallback
	}
	return f
}

func GetDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(Get(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
