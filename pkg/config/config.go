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
	App            AppConfig
	DB             DBConfig
	JWT            JWTConfig
	HTTP           HTTPConfig
	Inventory      InventoryConfig
	Transfer       TransferConfig
	Reconciliation ReconciliationConfig
	Deduction      DeductionConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	Audit          AuditConfig
	Telemetry      TelemetryConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env         string // development, staging, production
	Name        string
	LogLevel    string
	StoreDriver string // postgres | memory
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
	MaxConns    int
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
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// InventoryConfig política del ledger.
type InventoryConfig struct {
	NegativeStock   string // reject | allow
	ConflictRetries int
}

// AllowNegative indica si el ledger acepta stock negativo (marcándolo).
func (c InventoryConfig) AllowNegative() bool {
	return strings.EqualFold(c.NegativeStock, "allow")
}

// TransferConfig parámetros del motor de transferencias.
type TransferConfig struct {
	StaleAfter   time.Duration
	NumberPrefix string
}

// ReconciliationConfig parámetros de conciliación.
type ReconciliationConfig struct {
	CashThreshold decimal.Decimal
}

// DeductionConfig parámetros del worker de descuentos post-venta.
type DeductionConfig struct {
	Interval    time.Duration
	MaxAttempts int
	BatchSize   int
	BaseBackoff time.Duration
}

// RedisConfig conexión a Redis (secuenciador). Addr vacío = secuenciador en PostgreSQL.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig publicación de auditoría. Brokers vacío = solo log.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// AuditConfig buffer del despachador asíncrono de auditoría.
type AuditConfig struct {
	BufferSize int
}

// TelemetryConfig trazas OpenTelemetry. Endpoint vacío = tracer no-op.
type TelemetryConfig struct {
	OTLPEndpoint string
	ServiceName  string
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	// Opcional: archivo de configuración (.env o config.env)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig()

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	threshold, err := getDecimal(v, "RECONCILIATION_CASH_THRESHOLD", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Env:         getString(v, "APP_ENV", "development"),
			Name:        getString(v, "APP_NAME", "smartduka-inventory"),
			LogLevel:    getString(v, "LOG_LEVEL", "info"),
			StoreDriver: getString(v, "STORE_DRIVER", "postgres"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "smartduka"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "smartduka"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Inventory: InventoryConfig{
			NegativeStock:   getString(v, "INVENTORY_NEGATIVE_STOCK", "reject"),
			ConflictRetries: getInt(v, "CONFLICT_RETRY_ATTEMPTS", 3),
		},
		Transfer: TransferConfig{
			StaleAfter:   time.Duration(getInt(v, "TRANSFER_STALE_AFTER_HOURS", 72)) * time.Hour,
			NumberPrefix: getString(v, "TRANSFER_NUMBER_PREFIX", "TRF"),
		},
		Reconciliation: ReconciliationConfig{
			CashThreshold: threshold,
		},
		Deduction: DeductionConfig{
			Interval:    time.Duration(getInt(v, "DEDUCTION_WORKER_INTERVAL_SECONDS", 15)) * time.Second,
			MaxAttempts: getInt(v, "DEDUCTION_MAX_ATTEMPTS", 8),
			BatchSize:   getInt(v, "DEDUCTION_BATCH_SIZE", 50),
			BaseBackoff: time.Duration(getInt(v, "DEDUCTION_BASE_BACKOFF_SECONDS", 5)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(getString(v, "KAFKA_BROKERS", "")),
			AuditTopic: getString(v, "KAFKA_AUDIT_TOPIC", "smartduka.audit"),
		},
		Audit: AuditConfig{
			BufferSize: getInt(v, "AUDIT_BUFFER_SIZE", 1024),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getString(v, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			ServiceName:  getString(v, "OTEL_SERVICE_NAME", "smartduka-inventory"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Inventory.NegativeStock) {
	case "reject", "allow":
	default:
		return fmt.Errorf("INVENTORY_NEGATIVE_STOCK inválido: %q (reject | allow)", c.Inventory.NegativeStock)
	}
	switch c.App.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORE_DRIVER inválido: %q (postgres | memory)", c.App.StoreDriver)
	}
	if c.Reconciliation.CashThreshold.IsNegative() {
		return fmt.Errorf("RECONCILIATION_CASH_THRESHOLD no puede ser negativo")
	}
	return nil
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

func getDecimal(v *viper.Viper, key string, def decimal.Decimal) (decimal.Decimal, error) {
	if !v.IsSet(key) {
		return def, nil
	}
	d, err := decimal.NewFromString(v.GetString(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
