package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const envPrefix = "WEBSHOP_"

// SysConfig system settings
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig http api settings
type WebConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // hours
}

// DBConfig database settings, type is postgres or sqlite
type DBConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// SmtpConfig outgoing mail settings. Mail is only logged when Host is empty.
type SmtpConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	SenderName  string `yaml:"sender_name"`
	SenderEmail string `yaml:"sender_email"`
	Workers     int    `yaml:"workers"`
}

// RedisConfig catalog cache settings. The cache is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	CacheTTL int    `yaml:"cache_ttl"` // seconds
}

type StorageConfig struct {
	ImageDir     string `yaml:"image_dir"`
	MaxImageSize int64  `yaml:"max_image_size"`
}

type AppConfig struct {
	System   SysConfig     `yaml:"system"`
	Web      WebConfig     `yaml:"web"`
	Database DBConfig      `yaml:"database"`
	Logger   LogConfig     `yaml:"logger"`
	Smtp     SmtpConfig    `yaml:"smtp"`
	Redis    RedisConfig   `yaml:"redis"`
	Storage  StorageConfig `yaml:"storage"`
}

func (c *AppConfig) GetPublicDir() string {
	return filepath.Join(c.System.Workdir, "public")
}

func (c *AppConfig) GetImageDir() string {
	if c.Storage.ImageDir != "" {
		return c.Storage.ImageDir
	}
	return filepath.Join(c.GetPublicDir(), "images")
}

func (c *AppConfig) GetDataDir() string {
	return filepath.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetLogDir() string {
	return filepath.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) initDirs() error {
	for _, dir := range []string{c.GetImageDir(), c.GetDataDir(), c.GetLogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create directory %s", dir)
		}
	}
	return nil
}

// DefaultAppConfig returns a configuration usable for local development.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "WebShop",
			Location: "Asia/Shanghai",
			Workdir:  "/var/webshop",
		},
		Web: WebConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			Secret:   "9b6de5cc-0731-4bf1-a1b2-6b3e3f1c2d4a",
			TokenTTL: 24,
		},
		Database: DBConfig{
			Type:     "postgres",
			Host:     "127.0.0.1",
			Port:     5432,
			Name:     "webshop",
			User:     "postgres",
			Passwd:   "postgres",
			MaxConn:  100,
			IdleConn: 10,
		},
		Logger: LogConfig{
			Mode:     "development",
			Filename: "/var/webshop/logs/webshop.log",
		},
		Smtp: SmtpConfig{
			Port:    587,
			Workers: 8,
		},
		Redis: RedisConfig{
			CacheTTL: 60,
		},
		Storage: StorageConfig{
			MaxImageSize: 5 << 20,
		},
	}
}

// LoadConfig reads the yaml file when it exists, then applies .env and
// WEBSHOP_* environment overrides on top of it.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	_ = godotenv.Load()

	if cfile == "" {
		cfile = os.Getenv(envPrefix + "CONFIG")
	}
	if cfile != "" {
		data, err := os.ReadFile(cfile)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, errors.Wrapf(err, "read config %s", cfile)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", cfile)
			}
		}
	}

	applyEnv(cfg)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Type != "postgres" && cfg.Database.Type != "sqlite" {
		return nil, errors.Errorf("unsupported database type %q", cfg.Database.Type)
	}
	if err := cfg.initDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *AppConfig) {
	setEnvString("SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvString("SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBool("SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvString("WEB_HOST", &cfg.Web.Host)
	setEnvInt("WEB_PORT", &cfg.Web.Port)
	setEnvString("WEB_SECRET", &cfg.Web.Secret)
	setEnvInt("WEB_TOKEN_TTL", &cfg.Web.TokenTTL)

	setEnvString("DB_TYPE", &cfg.Database.Type)
	setEnvString("DB_HOST", &cfg.Database.Host)
	setEnvInt("DB_PORT", &cfg.Database.Port)
	setEnvString("DB_NAME", &cfg.Database.Name)
	setEnvString("DB_USER", &cfg.Database.User)
	setEnvString("DB_PASSWD", &cfg.Database.Passwd)
	setEnvInt("DB_MAX_CONN", &cfg.Database.MaxConn)
	setEnvInt("DB_IDLE_CONN", &cfg.Database.IdleConn)
	setEnvBool("DB_DEBUG", &cfg.Database.Debug)

	setEnvString("LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBool("LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvString("LOGGER_FILENAME", &cfg.Logger.Filename)

	setEnvString("SMTP_HOST", &cfg.Smtp.Host)
	setEnvInt("SMTP_PORT", &cfg.Smtp.Port)
	setEnvString("SMTP_USERNAME", &cfg.Smtp.Username)
	setEnvString("SMTP_PASSWORD", &cfg.Smtp.Password)
	setEnvString("SMTP_SENDER_NAME", &cfg.Smtp.SenderName)
	setEnvString("SMTP_SENDER_EMAIL", &cfg.Smtp.SenderEmail)
	setEnvInt("SMTP_WORKERS", &cfg.Smtp.Workers)

	setEnvString("REDIS_ADDR", &cfg.Redis.Addr)
	setEnvString("REDIS_PASSWORD", &cfg.Redis.Password)
	setEnvInt("REDIS_DB", &cfg.Redis.DB)
	setEnvInt("REDIS_CACHE_TTL", &cfg.Redis.CacheTTL)

	setEnvString("STORAGE_IMAGE_DIR", &cfg.Storage.ImageDir)
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func setEnvString(name string, dst *string) {
	if v, ok := lookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func setEnvInt(name string, dst *int) {
	if v, ok := lookupEnv(name); ok && v != "" {
		if n, err := cast.ToIntE(v); err == nil {
			*dst = n
		}
	}
}

func setEnvBool(name string, dst *bool) {
	if v, ok := lookupEnv(name); ok && v != "" {
		if b, err := cast.ToBoolE(v); err == nil {
			*dst = b
		}
	}
}
