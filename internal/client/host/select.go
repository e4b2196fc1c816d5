package host

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/obyektivka/internal/logging"
)

// Config is everything Select needs to pick and build a host.
type Config struct {
	DevMode bool
	// User is the configured Telegram identity, if any.
	User        *TelegramUser
	Telegram    TelegramConfig
	DownloadDir string
	S3          S3Config
	HTTPClient  *http.Client
	// NoPrompt makes Confirm decline without asking, e.g. when stdin is
	// piped but already wrapped in a buffered reader.
	NoPrompt bool
}

// Identity returns the configured user, or the development user in dev mode.
func (c Config) Identity() *TelegramUser {
	if c.User != nil && c.User.ID != 0 {
		u := *c.User
		return &u
	}
	if c.DevMode {
		u := DevUser()
		return &u
	}
	return nil
}

// Select builds the host once at start-up: Telegram when a bot token is
// configured, the terminal otherwise. Downloads go to S3 when a bucket is
// configured, to DownloadDir otherwise.
func Select(ctx context.Context, cfg Config, in io.Reader, out io.Writer, log logging.Logger) (Host, error) {
	if log == nil {
		log = logging.Nop()
	}

	var sink Sink = FileSink{Dir: cfg.DownloadDir}
	if cfg.S3.Bucket != "" {
		s3Sink, err := NewS3Sink(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		sink = s3Sink
		log.Info(ctx, "downloads go to s3", "bucket", cfg.S3.Bucket)
	}

	user := cfg.Identity()
	term := NewTerminal(in, out, sink, user)
	if cfg.NoPrompt {
		term.interactive = false
	}

	if cfg.Telegram.Token == "" {
		log.Debug(ctx, "using terminal host", "identity", user != nil)
		return term, nil
	}

	tg, err := NewTelegram(cfg.Telegram, cfg.HTTPClient, term, user)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "using telegram host", "chat_id", cfg.Telegram.ChatID)
	return tg, nil
}
