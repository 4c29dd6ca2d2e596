package main

import (
	"os"
	"os/signal"
	"syscall"

	"adminbot/config"
	"adminbot/internal/auth"
	"adminbot/internal/cache"
	"adminbot/internal/review"
	"adminbot/internal/session"
	"adminbot/pkg/api"
	"adminbot/pkg/bot"
	"adminbot/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.ServiceName, cfg.LoggerLevel)

	store, err := session.NewStore(cfg.TokenFile, log)
	if err != nil {
		log.Error("failed to open credential store", logger.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	requestCache := cache.New(cfg.CacheStale, log)

	client := api.New(cfg.APIBaseURL, cfg.HTTPTimeout, store.Token, log)
	// Only the identity check is allowed to kill the session; a 401 from
	// any other endpoint surfaces as an error without logging anyone out.
	client.OnAuthFailure(store.Clear)

	authSvc := auth.NewService(client, store, requestCache, log)
	reviewSvc := review.NewService(client, requestCache, log)

	adminBot, err := bot.New(&cfg, authSvc, reviewSvc, log)
	if err != nil {
		log.Error("failed to initialize admin bot", logger.Error(err))
		os.Exit(1)
	}

	go adminBot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Info("shutting down")
	adminBot.Stop()
}
