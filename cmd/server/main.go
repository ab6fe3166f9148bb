package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"annotation-survey/config"
	telegram "annotation-survey/internal/api"
	"annotation-survey/internal/container"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Собираем хранилище и сервисы
	server, err := container.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to init store: %v", err)
	}
	defer server.Close()

	// Бот необязателен, без токена работает только HTTP API
	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, server.OperatorService, server.SurveyService,
			server.Renderer, server.Images, cfg.ImageDir, cfg.AdminChatID)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		server.SurveyService.SetNotifier(bot)

		go func() {
			log.Println("Bot is running...")
			if err := bot.Run(ctx); err != nil {
				log.Printf("Bot error: %v", err)
			}
		}()
	} else {
		log.Println("TELEGRAM_TOKEN is not set, admin bot disabled")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler.Routes(cfg.ImageDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	log.Printf("Server starting on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}
