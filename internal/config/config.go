package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

// Chat history drivers
const (
	ChatFile  = "file"
	ChatRedis = "redis"
)

// Config holds all runtime settings
type Config struct {
	Env  string
	Port int

	LogLevel     string
	LogFormat    string
	RollbarToken string

	JWTSecret string
	TokenTTL  time.Duration

	StorageDriver string
	DataFile      string
	SQLitePath    string
	MongoURI      string
	MongoDB       string

	ChatDriver string
	ChatFile   string
	RedisAddr  string
	RedisPass  string
	RedisDB    int

	CORSOrigins []string
	CORSMethods []string
	CORSHeaders []string

	ICEServers []webrtc.ICEServer

	ShutdownTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", "dev")
	v.SetDefault("port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("rollbar.token", "")
	v.SetDefault("jwt.secret", "super-secret-key-change-in-production")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("storage.driver", StorageFile)
	v.SetDefault("storage.file", "data/db.json")
	v.SetDefault("storage.sqlite", "data/eduplatform.db")
	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.db", "eduplatform")
	v.SetDefault("chat.driver", ChatFile)
	v.SetDefault("chat.file", "data/messageHistory.json")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cors.origins", []string{"*"})
	v.SetDefault("cors.methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("ice.urls", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("ice.username", "")
	v.SetDefault("ice.credential", "")
	v.SetDefault("shutdown.timeout", 10*time.Second)
}

// Load reads defaults, an optional .env file, an optional config file and
// EDU_* environment variables (EDU_STORAGE_DRIVER for storage.driver).
func Load(configFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Wrap(err, "load .env")
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "stat .env")
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("EDU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", configFile)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env:             v.GetString("env"),
		Port:            v.GetInt("port"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
		RollbarToken:    v.GetString("rollbar.token"),
		JWTSecret:       v.GetString("jwt.secret"),
		TokenTTL:        v.GetDuration("jwt.ttl"),
		StorageDriver:   strings.ToLower(v.GetString("storage.driver")),
		DataFile:        v.GetString("storage.file"),
		SQLitePath:      v.GetString("storage.sqlite"),
		MongoURI:        v.GetString("mongo.uri"),
		MongoDB:         v.GetString("mongo.db"),
		ChatDriver:      strings.ToLower(v.GetString("chat.driver")),
		ChatFile:        v.GetString("chat.file"),
		RedisAddr:       v.GetString("redis.addr"),
		RedisPass:       v.GetString("redis.password"),
		RedisDB:         v.GetInt("redis.db"),
		CORSOrigins:     v.GetStringSlice("cors.origins"),
		CORSMethods:     v.GetStringSlice("cors.methods"),
		CORSHeaders:     v.GetStringSlice("cors.headers"),
		ShutdownTimeout: v.GetDuration("shutdown.timeout"),
	}

	if urls := v.GetStringSlice("ice.urls"); len(urls) > 0 {
		server := webrtc.ICEServer{URLs: urls}
		if user := v.GetString("ice.username"); user != "" {
			server.Username = user
			server.Credential = v.GetString("ice.credential")
		}
		cfg.ICEServers = []webrtc.ICEServer{server}
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageFile, StorageSQLite, StorageMongo, StorageMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.StorageDriver)
	}
	switch c.ChatDriver {
	case ChatFile, ChatRedis:
	default:
		return errors.Errorf("unknown chat driver %q", c.ChatDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt.secret must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "prod") || strings.EqualFold(c.Env, "production")
}
