package config

import (
	"time"

	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/host"
	"github.com/dmitrijs2005/obyektivka/internal/client/query"
	"github.com/dmitrijs2005/obyektivka/internal/imagex"
	"github.com/dmitrijs2005/obyektivka/internal/waitx"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// PassphrasePrompt as the passphrase means it is read from the terminal at
// start-up.
const PassphrasePrompt = "-"

// Config holds runtime settings for the obyektivka CLI.
type Config struct {
	APIURL     string
	BackendURL string
	Timeout    time.Duration

	DBPath     string
	Passphrase string

	LogFormat string
	LogLevel  string
	DevMode   bool

	CacheBackend   string
	CacheStaleTime time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	PDFPollAttempts int
	PDFPollInterval time.Duration
	MaxPhotoWidth   int

	TelegramBotToken  string
	TelegramChatID    int64
	TelegramEndpoint  string
	TelegramUserID    int64
	TelegramFirstName string
	TelegramLastName  string
	TelegramUsername  string

	DownloadDir string
	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = client.DefaultAPIURL
	c.BackendURL = ""
	c.Timeout = client.DefaultTimeout
	c.DBPath = "obyektivka.db"
	c.LogFormat = "text"
	c.LogLevel = "info"
	c.CacheBackend = CacheMemory
	c.CacheStaleTime = query.DefaultStaleTime
	c.PDFPollAttempts = waitx.DefaultPolicy.MaxAttempts
	c.PDFPollInterval = waitx.DefaultPolicy.Interval
	c.MaxPhotoWidth = imagex.DefaultMaxWidth
	c.DownloadDir = host.DefaultDownloadDir
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones. An unset backend URL is
// derived from the API URL.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	cfg.finalize()
	return cfg
}

func (c *Config) finalize() {
	if c.BackendURL == "" {
		c.BackendURL = client.BackendOrigin(c.APIURL)
	}
}

// PollPolicy is the PDF availability polling policy.
func (c *Config) PollPolicy() waitx.Policy {
	return waitx.Policy{MaxAttempts: c.PDFPollAttempts, Interval: c.PDFPollInterval}
}

// Redis returns the cache connection settings.
func (c *Config) Redis() query.RedisConfig {
	return query.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
		TTL:      c.CacheStaleTime * 10,
	}
}

// Host returns the settings used to select the host environment.
func (c *Config) Host() host.Config {
	hc := host.Config{
		DevMode: c.DevMode,
		Telegram: host.TelegramConfig{
			Token:    c.TelegramBotToken,
			ChatID:   c.TelegramChatID,
			Endpoint: c.TelegramEndpoint,
		},
		DownloadDir: c.DownloadDir,
		S3: host.S3Config{
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
			Region:       c.S3Region,
			BaseEndpoint: c.S3Endpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
		},
	}
	if c.TelegramUserID != 0 {
		hc.User = &host.TelegramUser{
			ID:        c.TelegramUserID,
			FirstName: c.TelegramFirstName,
			LastName:  c.TelegramLastName,
			Username:  c.TelegramUsername,
		}
	}
	if hc.Telegram.ChatID == 0 && hc.User != nil && hc.Telegram.Token != "" {
		// private chats share the user's id
		hc.Telegram.ChatID = hc.User.ID
	}
	return hc
}
