package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	mysql "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const (
	driverName = "mysql"

	// ConfigEnv で設定ファイルのパスを上書きできる
	ConfigEnv         = "BOOKSHELF_CONFIG"
	DefaultConfigPath = "config/config.yaml"
)

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

type ServerConfig struct {
	Addr      string          `yaml:"addr"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig: クライアントIPごとに window あたり requests 回まで
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type ImageStoreConfig struct {
	URL           string        `yaml:"url"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Burst         int           `yaml:"burst"`
}

type ImportConfig struct {
	SourceFile        string `yaml:"source_file"`
	PhotosDir         string `yaml:"photos_dir"`
	UploadConcurrency int    `yaml:"upload_concurrency"`
}

type Config struct {
	Version     string           `yaml:"version"`
	Mode        string           `yaml:"mode"`
	Server      ServerConfig     `yaml:"server"`
	DB          DatabaseConfig   `yaml:"database"`
	Certificate Certs            `yaml:"certificate"`
	Auth        AuthConfig       `yaml:"auth"`
	ImageStore  ImageStoreConfig `yaml:"image_store"`
	Import      ImportConfig     `yaml:"import"`
}

// ConfigPath は環境変数があればそれを、なければ既定パスを返す
func ConfigPath() string {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}
	return DefaultConfigPath
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(buf)
}

func ParseConfig(buf []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.RateLimit.Requests <= 0 {
		c.Server.RateLimit.Requests = 10000
	}
	if c.Server.RateLimit.Window <= 0 {
		c.Server.RateLimit.Window = 15 * time.Minute
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.MaxOpenConns <= 0 {
		c.DB.MaxOpenConns = 40
	}
	if c.DB.MaxIdleConns <= 0 {
		c.DB.MaxIdleConns = 10
	}
	if c.DB.ConnMaxLifetime <= 0 {
		c.DB.ConnMaxLifetime = 30 * time.Minute
	}
	if c.ImageStore.Timeout <= 0 {
		c.ImageStore.Timeout = 30 * time.Second
	}
	if c.ImageStore.RatePerSecond <= 0 {
		c.ImageStore.RatePerSecond = 5
	}
	if c.ImageStore.Burst <= 0 {
		c.ImageStore.Burst = 1
	}
	if c.Import.UploadConcurrency <= 0 {
		c.Import.UploadConcurrency = 4
	}
}

// DSN はタイムアウト付きの接続文字列を組み立てる。
// 各ストア呼び出しはこのタイムアウトで必ず終わる。
func (c DatabaseConfig) DSN() string {
	mc := mysql.NewConfig()
	mc.User = c.Username
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Loc = time.UTC
	mc.Timeout = 3 * time.Second
	mc.ReadTimeout = 5 * time.Second
	mc.WriteTimeout = 5 * time.Second
	return mc.FormatDSN()
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, c.DSN())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	// プールが埋まっている間、呼び出し側は空きを待つ（即失敗はしない）
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
