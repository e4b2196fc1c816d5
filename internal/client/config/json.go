package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/obyektivka/internal/flagx"
	"github.com/dmitrijs2005/obyektivka/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Durations use timex.Duration so they can be given as strings like "3s"
// or as integer nanoseconds. Only keys present with a non-zero value
// override the running Config.
type JsonConfig struct {
	APIURL     string         `json:"api_url"`
	BackendURL string         `json:"backend_url"`
	Timeout    timex.Duration `json:"timeout"`

	DBPath     string `json:"db_path"`
	Passphrase string `json:"passphrase"`

	LogFormat string `json:"log_format"`
	LogLevel  string `json:"log_level"`
	DevMode   *bool  `json:"dev_mode"`

	CacheBackend   string         `json:"cache_backend"`
	CacheStaleTime timex.Duration `json:"cache_stale_time"`
	RedisAddr      string         `json:"redis_addr"`
	RedisPassword  string         `json:"redis_password"`
	RedisDB        int            `json:"redis_db"`

	PDFPollAttempts int            `json:"pdf_poll_attempts"`
	PDFPollInterval timex.Duration `json:"pdf_poll_interval"`
	MaxPhotoWidth   int            `json:"max_photo_width"`

	Telegram struct {
		BotToken  string `json:"bot_token"`
		ChatID    int64  `json:"chat_id"`
		Endpoint  string `json:"endpoint"`
		UserID    int64  `json:"user_id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
	} `json:"telegram"`

	DownloadDir string `json:"download_dir"`
	S3          struct {
		Bucket    string `json:"bucket"`
		Prefix    string `json:"prefix"`
		Region    string `json:"region"`
		Endpoint  string `json:"endpoint"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
	} `json:"s3"`
}

// parseJson overlays Config with values loaded from a JSON file given with
// -c or -config. Without either flag nothing happens. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.APIURL, jc.APIURL)
	setString(&cfg.BackendURL, jc.BackendURL)
	setDuration(&cfg.Timeout, jc.Timeout)
	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.Passphrase, jc.Passphrase)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.DevMode != nil {
		cfg.DevMode = *jc.DevMode
	}

	setString(&cfg.CacheBackend, jc.CacheBackend)
	setDuration(&cfg.CacheStaleTime, jc.CacheStaleTime)
	setString(&cfg.RedisAddr, jc.RedisAddr)
	setString(&cfg.RedisPassword, jc.RedisPassword)
	setNumber(&cfg.RedisDB, jc.RedisDB)

	setNumber(&cfg.PDFPollAttempts, jc.PDFPollAttempts)
	setDuration(&cfg.PDFPollInterval, jc.PDFPollInterval)
	setNumber(&cfg.MaxPhotoWidth, jc.MaxPhotoWidth)

	setString(&cfg.TelegramBotToken, jc.Telegram.BotToken)
	setNumber(&cfg.TelegramChatID, jc.Telegram.ChatID)
	setString(&cfg.TelegramEndpoint, jc.Telegram.Endpoint)
	setNumber(&cfg.TelegramUserID, jc.Telegram.UserID)
	setString(&cfg.TelegramFirstName, jc.Telegram.FirstName)
	setString(&cfg.TelegramLastName, jc.Telegram.LastName)
	setString(&cfg.TelegramUsername, jc.Telegram.Username)

	setString(&cfg.DownloadDir, jc.DownloadDir)
	setString(&cfg.S3Bucket, jc.S3.Bucket)
	setString(&cfg.S3Prefix, jc.S3.Prefix)
	setString(&cfg.S3Region, jc.S3.Region)
	setString(&cfg.S3Endpoint, jc.S3.Endpoint)
	setString(&cfg.S3AccessKey, jc.S3.AccessKey)
	setString(&cfg.S3SecretKey, jc.S3.SecretKey)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNumber[T int | int64](dst *T, v T) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
