package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/yourorg/chat-app/services/realtime-service/internal/chat"
	"github.com/yourorg/chat-app/services/realtime-service/internal/config"
	"github.com/yourorg/chat-app/services/realtime-service/internal/events"
	"github.com/yourorg/chat-app/services/realtime-service/internal/hub"
	"github.com/yourorg/chat-app/services/realtime-service/internal/logger"
	"github.com/yourorg/chat-app/services/realtime-service/internal/middleware"
	"github.com/yourorg/chat-app/services/realtime-service/internal/presence"
	"github.com/yourorg/chat-app/services/realtime-service/internal/repository"
	"github.com/yourorg/chat-app/services/realtime-service/internal/server"
	"github.com/yourorg/chat-app/services/realtime-service/internal/storage"
	"github.com/yourorg/chat-app/services/realtime-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: cfg.App.Env != "production"})
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	var repos *repository.Repositories
	if cfg.Mongo.URI != "" {
		client, err := repository.Connect(ctx, cfg.Mongo.URI)
		if err != nil {
			zlog.Fatalw("mongo connect", "err", err)
		}
		defer client.Disconnect(context.Background())
		repos = repository.NewMongo(client.Database(cfg.Mongo.Database))
		zlog.Infow("mongo connected", "database", cfg.Mongo.Database)
	} else {
		repos = repository.NewMemory()
		zlog.Warnw("no mongo uri configured, state will not survive restarts")
	}

	var rdb *redis.Client
	var presenceStore *presence.Store
	var limiter *middleware.RateLimiter
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Fatalw("redis connect", "err", err)
		}
		defer rdb.Close()
		presenceStore = presence.NewStore(rdb, cfg.Redis.Prefix, 7*24*time.Hour)
		limiter = middleware.NewRateLimiter(rdb, cfg.Redis.Prefix+":ratelimit", cfg.RateLimit.Limit, cfg.RateLimitWindow)
		zlog.Infow("redis connected", "addr", cfg.Redis.Addr)
	}

	var sink events.Sink = events.NopSink{}
	if len(cfg.Kafka.Brokers) > 0 {
		ks := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, zlog)
		defer ks.Close()
		sink = ks
		zlog.Infow("kafka producer ready", "topic", cfg.Kafka.TopicEvents)
	}

	var media storage.MediaStore = storage.Disabled{}
	if cfg.S3.Bucket != "" {
		s3store, err := storage.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket)
		if err != nil {
			zlog.Fatalw("s3 init", "err", err)
		}
		media = s3store
		zlog.Infow("s3 media store ready", "bucket", cfg.S3.Bucket)
	}

	h := hub.New()
	chat.NewPresenceBroadcaster(h)

	block := chat.NewBlockRelation(repos.Users, h, zlog)
	if err := block.Hydrate(ctx); err != nil {
		zlog.Fatalw("block hydrate", "err", err)
	}
	state := chat.NewMessageStateMachine(repos.Messages, repos.Groups, h, zlog)
	direct := chat.NewDirectRouter(repos.Messages, block, h, media, sink, zlog)
	group := chat.NewGroupRouter(repos.Groups, repos.Messages, repos.Users, h, media, sink, zlog)
	dispatcher := chat.NewDispatcher(h, direct, group, state, block, zlog)

	wsHandler := ws.NewHandler(dispatcher, presenceStore, ws.HandlerConfig{
		JWTSecret:     cfg.App.JWTSecret,
		PingInterval:  cfg.PingInterval,
		WriteDeadline: cfg.WriteDeadline,
		PongWait:      cfg.PongWait,
		MaxMsgSize:    cfg.WS.MaxMessageSizeBytes,
		SendBuffer:    cfg.WS.SendBuffer,
	}, zlog)

	app := server.New(wsHandler, limiter)

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		zlog.Infow("starting realtime service", "addr", addr)
		errs <- app.Listen(addr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case e := <-errs:
		zlog.Fatalw("server error", "err", e)
	case s := <-sig:
		zlog.Infow("signal received", "signal", s.String())
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Warnw("fiber shutdown", "err", err)
	}
	zlog.Infow("shut down")
}
