package main

import (
	"bufio"
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/obyektivka/internal/buildinfo"
	"github.com/dmitrijs2005/obyektivka/internal/client/cli"
	"github.com/dmitrijs2005/obyektivka/internal/client/client"
	"github.com/dmitrijs2005/obyektivka/internal/client/config"
	"github.com/dmitrijs2005/obyektivka/internal/client/credentials"
	"github.com/dmitrijs2005/obyektivka/internal/client/host"
	"github.com/dmitrijs2005/obyektivka/internal/client/query"
	"github.com/dmitrijs2005/obyektivka/internal/client/services"
	"github.com/dmitrijs2005/obyektivka/internal/client/session"
	"github.com/dmitrijs2005/obyektivka/internal/client/storage"
	"github.com/dmitrijs2005/obyektivka/internal/common"
	"github.com/dmitrijs2005/obyektivka/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "client stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	db, err := storage.InitDatabase(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := openStore(ctx, db, cfg.Passphrase)
	if err != nil {
		return err
	}

	sess := session.New(store, logger)
	api, err := client.NewHTTPClient(cfg.APIURL,
		client.WithSession(sess),
		client.WithTimeout(cfg.Timeout),
		client.WithBackendURL(cfg.BackendURL),
		client.WithLogger(logger),
		client.WithMaxPhotoWidth(cfg.MaxPhotoWidth),
		client.WithOnUnauthorized(func(loginPath string) {
			logger.Info(ctx, "session rejected by backend", "redirect", loginPath)
		}),
	)
	if err != nil {
		return err
	}
	sess.Bind(api)

	cache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	unsubscribe := sess.Subscribe(func(st session.State) {
		if st.Hydrated && !st.IsAuthenticated && st.Token == "" {
			if err := cache.Reset(ctx); err != nil {
				logger.Warn(ctx, "failed to reset query cache", "error", err)
			}
		}
	})
	defer unsubscribe()

	in := bufio.NewReader(os.Stdin)
	hc := cfg.Host()
	hc.NoPrompt = !host.IsTerminal(os.Stdin)
	h, err := host.Select(ctx, hc, in, os.Stdout, logger)
	if err != nil {
		return err
	}

	app := cli.NewApp(cli.Deps{
		Session:    sess,
		Identity:   host.IdentityFunc(h),
		Documents:  services.NewDocumentService(api, cache, cfg.PollPolicy(), logger),
		References: services.NewReferenceService(api, cache, logger),
		Host:       h,
		StorageURL: api.StorageURL,
		In:         in,
		Out:        os.Stdout,
		Log:        logger,
	})
	app.Run(ctx)
	return nil
}

// openStore returns the credentials store, sealed when a passphrase is set.
func openStore(ctx context.Context, db *sql.DB, passphrase string) (*credentials.Store, error) {
	if passphrase == "" {
		return credentials.NewStore(db), nil
	}
	pw := []byte(passphrase)
	if passphrase == config.PassphrasePrompt {
		var err error
		if pw, err = cli.GetPassphrase(os.Stdout); err != nil {
			return nil, err
		}
	}
	defer common.WipeByteArray(pw)
	return credentials.NewSealedStore(ctx, db, pw)
}

func openCache(ctx context.Context, cfg *config.Config, logger logging.Logger) (*query.Cache, error) {
	opts := []query.Option{query.WithStaleTime(cfg.CacheStaleTime), query.WithLogger(logger)}
	if cfg.CacheBackend != config.CacheRedis {
		return query.New(query.NewMemoryStore(), opts...), nil
	}

	rc := cfg.Redis()
	rdb, err := query.NewRedisClient(ctx, rc)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "query cache uses redis", "addr", rc.Addr)
	return query.New(query.NewRedisStore(rdb, rc), opts...), nil
}
