package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/obyektivka/internal/flagx"
)

// EnvPrefix starts every environment variable the client reads.
const EnvPrefix = "OBY_"

// parseEnv overlays Config with OBY_* environment variables.
//
// A dotenv file is loaded first: the path given with -env, or ./.env when
// it exists. Variables already set in the process environment win over the
// file. Panics on unreadable files or malformed values.
func parseEnv(cfg *Config) {
	path := flagx.EnvFileFlags()
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(fmt.Errorf("load %s: %w", path, err))
		}
	}

	envString("API_URL", &cfg.APIURL)
	envString("BACKEND_URL", &cfg.BackendURL)
	envDuration("TIMEOUT", &cfg.Timeout)
	envString("DB_PATH", &cfg.DBPath)
	envString("PASSPHRASE", &cfg.Passphrase)
	envString("LOG_FORMAT", &cfg.LogFormat)
	envString("LOG_LEVEL", &cfg.LogLevel)
	envBool("DEV_MODE", &cfg.DevMode)

	envString("CACHE_BACKEND", &cfg.CacheBackend)
	envDuration("CACHE_STALE_TIME", &cfg.CacheStaleTime)
	envString("REDIS_ADDR", &cfg.RedisAddr)
	envString("REDIS_PASSWORD", &cfg.RedisPassword)
	envInt("REDIS_DB", &cfg.RedisDB)

	envInt("PDF_POLL_ATTEMPTS", &cfg.PDFPollAttempts)
	envDuration("PDF_POLL_INTERVAL", &cfg.PDFPollInterval)
	envInt("MAX_PHOTO_WIDTH", &cfg.MaxPhotoWidth)

	envString("TELEGRAM_BOT_TOKEN", &cfg.TelegramBotToken)
	envInt64("TELEGRAM_CHAT_ID", &cfg.TelegramChatID)
	envString("TELEGRAM_ENDPOINT", &cfg.TelegramEndpoint)
	envInt64("TELEGRAM_USER_ID", &cfg.TelegramUserID)
	envString("TELEGRAM_FIRST_NAME", &cfg.TelegramFirstName)
	envString("TELEGRAM_LAST_NAME", &cfg.TelegramLastName)
	envString("TELEGRAM_USERNAME", &cfg.TelegramUsername)

	envString("DOWNLOAD_DIR", &cfg.DownloadDir)
	envString("S3_BUCKET", &cfg.S3Bucket)
	envString("S3_PREFIX", &cfg.S3Prefix)
	envString("S3_REGION", &cfg.S3Region)
	envString("S3_ENDPOINT", &cfg.S3Endpoint)
	envString("S3_ACCESS_KEY", &cfg.S3AccessKey)
	envString("S3_SECRET_KEY", &cfg.S3SecretKey)
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envString(name string, dst *string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func envBool(name string, dst *bool) {
	if v, ok := lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = b
	}
}

func envInt(name string, dst *int) {
	if v, ok := lookup(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = n
	}
}

func envInt64(name string, dst *int64) {
	if v, ok := lookup(name); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = n
	}
}

func envDuration(name string, dst *time.Duration) {
	if v, ok := lookup(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
		}
		*dst = d
	}
}
