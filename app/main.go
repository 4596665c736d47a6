package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/inkwell-cms/inkwell/internal/autosave"
	"github.com/inkwell-cms/inkwell/internal/blogservice"
	"github.com/inkwell-cms/inkwell/internal/common"
	"github.com/inkwell-cms/inkwell/internal/identityservice"
	"github.com/inkwell-cms/inkwell/internal/mailservice"
)

type application struct {
	config          *Config
	logger          *slog.Logger
	identityService *identityservice.IdentityService
	blogService     *blogservice.BlogService
	mailService     *mailservice.MailService
	autosaveManager *autosave.Manager
	broker          *common.MessageBroker
	feedLimiter     *feedLimiter

	// baseCtx outlives individual requests; edit-session schedulers and
	// other background work hang off it.
	baseCtx context.Context
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := common.NewDB(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, 10, 5, 15*time.Minute)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	broker, err := common.NewMessageBroker(URI)
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupIdentityExchange(broker)
	if err != nil {
		logger.Error("failed to setup the identity exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	identityService := identityservice.NewIdentityService(db, broker, cache)
	blogService := blogservice.NewBlogService(db, cache)

	autosaveCfg := autosave.Config{
		Enabled:         cfg.Autosave.Enabled,
		IntervalSeconds: cfg.Autosave.IntervalSeconds,
	}

	app := &application{
		config:          cfg,
		logger:          logger,
		identityService: identityService,
		blogService:     blogService,
		mailService:     mailservice.NewMailService(broker, cfg.Mail.Host, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.Sender, cfg.Mail.Port, logger),
		autosaveManager: autosave.NewManager(blogService, logger, autosaveCfg),
		broker:          broker,
		feedLimiter:     newFeedLimiter(cfg.Feed.RPS, cfg.Feed.Burst),
		baseCtx:         context.Background(),
	}

	// Seed the default admin account when the user table is empty.
	if _, err := app.identityService.EnsureAdmin(app.baseCtx); err != nil {
		logger.Error("failed to ensure admin account", slog.String("error", err.Error()))
		os.Exit(1)
	}

	go app.mailService.SendWelcomeEmail()

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
