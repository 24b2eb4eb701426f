package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	DBMaxOpenConns int
	DBMaxIdleConns int

	CORSOrigins []string // フロントURL（カンマ区切り、*で全許可）

	// 空なら商品の更新系APIは認証なし
	AdminJWTSecret string

	GoEnv           string // dev/prod
	LogLevel        string
	SeedCatalog     bool
	ShutdownTimeout time.Duration
}

// Loadは環境変数から読む。未設定はデフォルト、値が壊れていればエラー。
func Load() (Config, error) {
	pgPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	maxOpen, err := intEnv("DB_MAX_OPEN_CONNS", 10)
	if err != nil {
		return Config{}, err
	}
	maxIdle, err := intEnv("DB_MAX_IDLE_CONNS", 5)
	if err != nil {
		return Config{}, err
	}
	shutdownSec, err := intEnv("SHUTDOWN_TIMEOUT_SEC", 10)
	if err != nil {
		return Config{}, err
	}
	seed, err := boolEnv("SEED_CATALOG", true)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: getenv("PORT", "8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "app"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		DBMaxOpenConns: maxOpen,
		DBMaxIdleConns: maxIdle,

		CORSOrigins: parseCSV(getenv("CORS_ORIGIN", "*")),

		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),

		GoEnv:           getenv("GO_ENV", "dev"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		SeedCatalog:     seed,
		ShutdownTimeout: time.Duration(shutdownSec) * time.Second,
	}

	//範囲チェック
	if cfg.PostgresPort <= 0 || cfg.PostgresPort > 65535 {
		return Config{}, fmt.Errorf("POSTGRES_PORT out of range: %d", cfg.PostgresPort)
	}
	if cfg.DBMaxOpenConns < 1 {
		return Config{}, fmt.Errorf("DB_MAX_OPEN_CONNS must be >= 1")
	}
	if cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("DB_MAX_IDLE_CONNS must be >= 0")
	}
	if cfg.ShutdownTimeout <= 0 {
		return Config{}, fmt.Errorf("SHUTDOWN_TIMEOUT_SEC must be > 0")
	}
	if len(cfg.CORSOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ORIGIN is empty")
	}

	return cfg, nil
}

// DSNはDATABASE_URLがあればそれ、無ければPOSTGRES_*からpostgres:// URLを組み立てる
// （パスワードに空白や記号があってもエスケープされる）
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresHost, strconv.Itoa(c.PostgresPort)),
		Path:     "/" + c.PostgresDB,
		RawQuery: url.Values{"sslmode": {c.PostgresSSLMode}}.Encode(),
	}
	return u.String()
}

// ListenAddrは ":8080" 形式
func (c Config) ListenAddr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
