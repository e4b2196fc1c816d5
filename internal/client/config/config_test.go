package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/obyektivka/internal/client/host"
	"github.com/dmitrijs2005/obyektivka/internal/waitx"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:8001/api", c.APIURL)
	assert.Equal(t, 15*time.Second, c.Timeout)
	assert.Equal(t, CacheMemory, c.CacheBackend)
	assert.Equal(t, 5*time.Minute, c.CacheStaleTime)
	assert.Equal(t, waitx.DefaultPolicy, c.PollPolicy())
	assert.Equal(t, 600, c.MaxPhotoWidth)
	assert.Equal(t, host.DefaultDownloadDir, c.DownloadDir)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}
	chdir(t, t.TempDir())

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://localhost:8001/api", cfg.APIURL)
	assert.Equal(t, "http://localhost:8001", cfg.BackendURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	chdir(t, t.TempDir())

	t.Setenv("OBY_API_URL", "https://env.example.uz/api")
	t.Setenv("OBY_LOG_LEVEL", "debug")
	t.Setenv("OBY_DB_PATH", "env.db")
	path := writeTempJSON(t, "", "", map[string]any{
		"api_url": "https://json.example.uz/api",
		"db_path": "json.db",
	})
	os.Args = []string{"testbin", "-c", path, "-d", "flag.db"}

	cfg := LoadConfig()

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://json.example.uz/api", cfg.APIURL)
	assert.Equal(t, "https://json.example.uz", cfg.BackendURL)
	assert.Equal(t, "flag.db", cfg.DBPath)
}

func TestHostConfig(t *testing.T) {
	c := Config{
		DevMode:          true,
		TelegramBotToken: "123:abc",
		TelegramUserID:   42,
		TelegramUsername: "vali",
		DownloadDir:      "out",
		S3Bucket:         "docs",
		S3Endpoint:       "http://localhost:9000",
	}
	hc := c.Host()

	require.NotNil(t, hc.User)
	assert.Equal(t, int64(42), hc.User.ID)
	assert.Equal(t, int64(42), hc.Telegram.ChatID)
	assert.Equal(t, "docs", hc.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", hc.S3.BaseEndpoint)
	assert.Equal(t, "out", hc.DownloadDir)

	c.TelegramChatID = 7
	assert.Equal(t, int64(7), c.Host().Telegram.ChatID)

	assert.Nil(t, (&Config{DevMode: true}).Host().User)
}

func TestRedisConfig(t *testing.T) {
	c := Config{RedisAddr: "127.0.0.1:6379", RedisDB: 2, CacheStaleTime: 30 * time.Second}
	rc := c.Redis()
	assert.Equal(t, "127.0.0.1:6379", rc.Addr)
	assert.Equal(t, 2, rc.DB)
	assert.Equal(t, 5*time.Minute, rc.TTL)
}
