package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"impostor/internal/config"
	"impostor/internal/db"
	"impostor/internal/game"
	"impostor/internal/logging"
	"impostor/internal/notify"
	"impostor/internal/server"
	"impostor/internal/words"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Fatal("failed to load .env")
	}
	cfg := config.Load()
	log := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := words.Default()
	if cfg.WordsPath != "" {
		loaded, err := words.LoadCSV(cfg.WordsPath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.WordsPath).Fatal("failed to load word catalog")
		}
		catalog = loaded
	}
	log.WithField("categories", len(catalog.Categories())).Info("word catalog ready")

	var (
		store     game.Store
		notifiers game.Notifiers
	)
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to database")
		}
		if cfg.AutoMigrate {
			if err := db.Migrate(conn); err != nil {
				log.WithError(err).Fatal("failed to migrate database")
			}
		}
		store = db.NewRoomStore(conn)
		notifiers = append(notifiers, db.NewEventLog(conn))
		log.Info("using postgres room store")
	} else {
		store = game.NewMemoryStore()
		log.Warn("DATABASE_URL not set; rooms are kept in memory")
	}

	// The server needs the engine, so pushes reach it through this closure.
	var srv *server.Server
	push := game.NotifierFunc(func(ctx context.Context, event game.Event) error {
		return srv.Notifier().RoomChanged(ctx, event)
	})

	var redisNotifier *notify.RedisNotifier
	if cfg.RedisURL != "" {
		client, err := notify.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		defer client.Close()
		redisNotifier = notify.NewRedisNotifier(client, cfg.RedisPrefix, log)
		// Local sockets hear about changes through the subscription only, so
		// events from this instance are not pushed twice.
		notifiers = append(notifiers, redisNotifier)
		log.Info("room events fan out through redis")
	} else {
		notifiers = append(notifiers, push)
	}

	engine := game.NewEngine(store, catalog,
		game.WithNotifier(notifiers),
		game.WithLogger(log),
		game.WithStrictTransitions(cfg.StrictTransitions),
		game.WithCodeAttempts(cfg.CodeAttempts),
	)
	srv = server.New(engine, cfg, log)
	if redisNotifier != nil {
		go func() {
			if err := redisNotifier.Subscribe(ctx, push); err != nil {
				log.WithError(err).Error("room event subscription stopped")
			}
		}()
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", httpServer.Addr).Info("impostor server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
