package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/watchparty/server/internal/controller"
	connectioninmemory "github.com/watchparty/server/internal/repository/connection/inmemory"
	roomrepo "github.com/watchparty/server/internal/repository/room"
	"github.com/watchparty/server/internal/repository/room/fallback"
	roominmemory "github.com/watchparty/server/internal/repository/room/inmemory"
	roomredis "github.com/watchparty/server/internal/repository/room/redis"
	"github.com/watchparty/server/internal/service/room"
	"github.com/watchparty/server/pkg/ctxlogger"
	"github.com/watchparty/server/pkg/redisclient"
)

type AppConfig struct {
	Host             string `json:"host"`
	Port             int    `json:"port"`
	LogLevel         string `json:"log_level"`
	DefaultMediaUrl  string `json:"default_media_url"`
	ChatHistoryLimit int    `json:"chat_history_limit"`
	RedisHost        string `json:"redis_host"`
	RedisPort        int    `json:"redis_port"`
	RedisPassword    string `json:"-"`
	StoreTimeoutMs   int    `json:"store_timeout_ms"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.ChatHistoryLimit < 1 {
		return fmt.Errorf("chat history limit must be greater than 0")
	}
	if cfg.StoreTimeoutMs < 1 {
		return fmt.Errorf("store timeout must be greater than 0")
	}
	return nil
}

const (
	chatTTL           = 24 * time.Hour
	typingTTL         = 10 * time.Second
	probeInterval     = 5 * time.Second
	maxChatMessageLen = 2000
	generateAttempts  = 10
)

func Run(ctx context.Context, cfg *AppConfig) error {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		log.Fatal(err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	// The durable backend is optional: an unreachable redis degrades the
	// deployment to memory-only instead of refusing to start.
	var (
		primary roomrepo.Store
		ping    fallback.Pinger
	)
	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.WarnContext(ctx, "redis unavailable, running memory-only", "error", err)
	} else {
		defer rc.Close()
		durable := roomredis.NewRepo(rc, logger, chatTTL, typingTTL)
		primary, ping = durable, durable
	}

	memory := roominmemory.NewRepo(logger, cfg.ChatHistoryLimit, typingTTL)
	store := fallback.NewRepo(primary, ping, memory, logger, &fallback.Config{
		Timeout:       time.Duration(cfg.StoreTimeoutMs) * time.Millisecond,
		ProbeInterval: probeInterval,
	})

	connectionRepo := connectioninmemory.NewRepo()
	roomService := room.NewService(store, connectionRepo, logger, &room.Config{
		DefaultMediaUrl:   cfg.DefaultMediaUrl,
		ChatHistoryLimit:  cfg.ChatHistoryLimit,
		MaxChatMessageLen: maxChatMessageLen,
		GenerateAttempts:  generateAttempts,
	})
	controller := controller.NewController(roomService, store, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetRouter()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
