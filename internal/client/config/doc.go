// Package config loads runtime configuration for the obyektivka CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed with OBY_ (see parseEnv). A dotenv
//     file is read first: the one given with -env, or ./.env when present.
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// When no backend URL is configured it is derived from the API URL by
// stripping a trailing /api.
//
// A passphrase (OBY_PASSPHRASE or "passphrase") seals the stored
// credentials; the value "-" asks for it on the terminal at start-up.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "api_url": "https://obyektivka.uz/api",
//	  "timeout": "15s",
//	  "cache_backend": "redis",
//	  "redis_addr": "127.0.0.1:6379",
//	  "telegram": {"bot_token": "123:abc", "user_id": 893968025265},
//	  "s3": {"bucket": "obyektivka-exports", "region": "us-east-1"}
//	}
package config
