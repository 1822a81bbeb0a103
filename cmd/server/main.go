package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/cache"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/chat"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/config"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/database"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/query"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/router"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/service"
	"github.com/AresNative/mercado-liz-reporteria-sub001/internal/ws"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()
	ctx := context.Background()

	if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	var c cache.Cache = cache.Noop{}
	redisCache := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn("redis unavailable, count caching disabled", zap.Error(err))
	} else {
		c = redisCache
	}

	var chatStore *chat.Store
	if cfg.FirebaseProject != "" {
		chatStore, err = chat.NewStore(ctx, cfg.FirebaseProject, cfg.FirebaseCredentials)
		if err != nil {
			log.Fatal("firestore", zap.Error(err))
		}
		defer chatStore.Close()
	} else {
		log.Warn("FIREBASE_PROJECT not set, chat routes disabled")
	}

	hub := ws.NewHub()
	go hub.Run()

	deps := router.Deps{
		Config:  cfg,
		Log:     log,
		Hub:     hub,
		Pedidos: service.NewPedidoService(service.NewPgStore(pool), log),
		Runner:  query.NewRunner(pool, c, log),
	}
	if chatStore != nil {
		deps.Chat = chatStore
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
