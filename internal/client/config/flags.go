package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/obyektivka/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   backend API URL
//	-b string   backend origin for static files
//	-d string   path of the local SQLite database
//	-t int      request timeout (in seconds)
//	-l string   log level: debug, info, warn, error
//	-f string   log format: text, json, zap
//	-dev        development mode (Telegram test user)
//	-cache string  query cache backend: memory or redis
//	-redis string  Redis address for the redis cache backend
//	-o string   download directory
//
// os.Args is filtered with flagx.FilterArgs so flags owned by other
// components do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-b", "-d", "-t", "-l", "-f", "-dev", "-cache", "-redis", "-o",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "backend API URL")
	fs.StringVar(&cfg.BackendURL, "b", cfg.BackendURL, "backend origin for static files")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "local database path")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format")
	fs.BoolVar(&cfg.DevMode, "dev", cfg.DevMode, "development mode")
	fs.StringVar(&cfg.CacheBackend, "cache", cfg.CacheBackend, "query cache backend")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.Timeout = time.Duration(*timeout) * time.Second
		}
	})
}
