package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/filecrate/internal/server"
	"github.com/dmitrymomot/filecrate/internal/storage"
	"github.com/dmitrymomot/filecrate/internal/sweeper"
	"github.com/dmitrymomot/filecrate/pkg/config"
	"github.com/dmitrymomot/filecrate/pkg/contentstore"
	"github.com/dmitrymomot/filecrate/pkg/httpserver"
	"github.com/dmitrymomot/filecrate/pkg/logger"
	"github.com/dmitrymomot/filecrate/pkg/requestid"
	"github.com/dmitrymomot/filecrate/pkg/token"
)

type appConfig struct {
	Environment   string        `env:"APP_ENV" envDefault:"development"`
	ContentRoot   string        `env:"CONTENT_ROOT" envDefault:"./data"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	ReadTimeout   time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	IdleTimeout   time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"2m"`
}

func main() {
	var (
		appCfg    appConfig
		pgCfg     storage.Config
		serverCfg server.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&pgCfg)
	config.MustLoad(&serverCfg)

	log := logger.New(
		logger.WithEnvironment(appCfg.Environment, "filecrate"),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), appCfg, pgCfg, serverCfg, log); err != nil {
		log.Error("exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, pgCfg storage.Config, serverCfg server.Config, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := storage.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := storage.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}
	db := storage.New(pool)

	files, err := contentstore.New(appCfg.ContentRoot)
	if err != nil {
		return err
	}
	log.Info("content store ready", "root", files.Root())

	codec := token.NewCodec(serverCfg.TokenSecret)
	srv := server.New(serverCfg, log, db, files, codec)

	sw := sweeper.New(db, files, log, sweeper.WithInterval(appCfg.SweepInterval))
	go sw.Run(ctx)

	return httpserver.New(
		httpserver.WithAddr(serverCfg.Addr),
		httpserver.WithReadTimeout(appCfg.ReadTimeout),
		httpserver.WithIdleTimeout(appCfg.IdleTimeout),
		httpserver.WithLogger(log),
	).Run(ctx, srv.Router())
}
