package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App     AppConfig
	DB      DBConfig
	JWT     JWTConfig
	HTTP    HTTPConfig
	Auth    AuthConfig
	Stock   StockConfig
	Metrics MetricsConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env         string // development, staging, production
	Name        string
	LogLevel    string
	SwaggerFile string // vacío = sin Swagger UI
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host         string
	Port         int
	CookieSecure bool
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig parámetros del inicio de sesión y del segundo factor.
type AuthConfig struct {
	BootstrapAdminEmail string
	LoginTimeout        time.Duration
	MFACodeTTL          time.Duration
	MaxFailedLogins     int
	LockoutWindow       time.Duration
	// SessionIdle tiempo sin uso tras el cual se libera el gestor en memoria.
	// La copia persistida se conserva. Por defecto igual a la expiración del JWT.
	SessionIdle time.Duration
}

// StockConfig parámetros del sincronizador de stock.
type StockConfig struct {
	Ceiling      decimal.Decimal
	QuietWindow  time.Duration
	RetryBase    time.Duration
	MaxRetries   int
	Debounce     time.Duration
	WriteTimeout time.Duration
}

// MetricsConfig exposición de métricas Prometheus.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, STOCK_CEILING, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	ceiling, err := decimal.NewFromString(getString(v, "STOCK_CEILING", "1000000"))
	if err != nil {
		return nil, fmt.Errorf("STOCK_CEILING inválido: %w", err)
	}

	jwtMinutes := getInt(v, "JWT_EXPIRATION_MINUTES", 480)

	cfg := &Config{
		App: AppConfig{
			Env:         getString(v, "APP_ENV", "development"),
			Name:        getString(v, "APP_NAME", "cokelateh-api"),
			LogLevel:    getString(v, "LOG_LEVEL", "info"),
			SwaggerFile: getString(v, "SWAGGER_FILE", "./docs/swagger.json"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "cokelateh"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			AutoMigrate: getBool(v, "DB_AUTO_MIGRATE", true),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: jwtMinutes,
			Issuer:     getString(v, "JWT_ISSUER", "cokelateh-api"),
		},
		HTTP: HTTPConfig{
			Host:         getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:         getInt(v, "HTTP_PORT", 8080),
			CookieSecure: getBool(v, "COOKIE_SECURE", false),
		},
		Auth: AuthConfig{
			BootstrapAdminEmail: getString(v, "AUTH_BOOTSTRAP_ADMIN_EMAIL", "admin@cokelateh.com"),
			LoginTimeout:        getDuration(v, "AUTH_LOGIN_TIMEOUT", 30*time.Second),
			MFACodeTTL:          getDuration(v, "AUTH_MFA_CODE_TTL", 5*time.Minute),
			MaxFailedLogins:     getInt(v, "AUTH_MAX_FAILED_LOGINS", 5),
			LockoutWindow:       getDuration(v, "AUTH_LOCKOUT_WINDOW", 15*time.Minute),
			SessionIdle:         getDuration(v, "AUTH_SESSION_IDLE", time.Duration(jwtMinutes)*time.Minute),
		},
		Stock: StockConfig{
			Ceiling:      ceiling,
			QuietWindow:  getDuration(v, "STOCK_QUIET_WINDOW", time.Second),
			RetryBase:    getDuration(v, "STOCK_RETRY_BASE", time.Second),
			MaxRetries:   getInt(v, "STOCK_MAX_RETRIES", 3),
			Debounce:     getDuration(v, "STOCK_DEBOUNCE", 800*time.Millisecond),
			WriteTimeout: getDuration(v, "STOCK_WRITE_TIMEOUT", 10*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getBool(v, "METRICS_ENABLED", true),
			Path:    getString(v, "METRICS_PATH", "/metrics"),
		},
	}
	if cfg.Auth.SessionIdle <= 0 {
		cfg.Auth.SessionIdle = time.Duration(jwtMinutes) * time.Minute
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}

// getDuration acepta "30s", "500ms" o un número de milisegundos.
func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	raw := strings.TrimSpace(v.GetString(key))
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
