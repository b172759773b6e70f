package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jamolkhon5/drai/internal/chat"
	"github.com/Jamolkhon5/drai/internal/config"
	"github.com/Jamolkhon5/drai/internal/credential"
	"github.com/Jamolkhon5/drai/internal/gemini"
	"github.com/Jamolkhon5/drai/internal/handler"
	"github.com/Jamolkhon5/drai/internal/history"
	"github.com/Jamolkhon5/drai/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.NewConfig(".env")
	if err != nil {
		logrus.Fatal(err)
	}

	// Подключение к базе данных
	dbURL := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.PgHost, cfg.PgPort, cfg.PgUser, cfg.PgPassword, cfg.PgName)

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		logrus.Fatal(err)
	}
	defer db.Close()

	// Создание таблицы
	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS client_storage (
            client_id VARCHAR(255) NOT NULL,
            key VARCHAR(255) NOT NULL,
            value TEXT NOT NULL,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            PRIMARY KEY (client_id, key)
        )
    `)
	if err != nil {
		logrus.Fatal(err)
	}

	// Сборка сервиса
	store := storage.NewPostgresStore(db)
	resolver := credential.NewResolver(cfg.GeminiApiKey, store)
	client := gemini.NewClient(cfg.ModelName)
	hist := history.NewStore(store)
	chatSvc := chat.NewService(resolver, client, hist)
	h := handler.NewHandler(chatSvc, resolver, hist, client, store)

	// Настройка роутера
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handler.ClientIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/chat", h.ActiveChat)
		r.Post("/chat", h.Chat)
		r.Post("/chat/new", h.NewChat)

		r.Get("/history", h.History)
		r.Delete("/history", h.ClearHistory)
		r.Delete("/history/{id}", h.DeleteSession)

		r.Get("/credential", h.CredentialStatus)
		r.Put("/credential", h.SaveCredential)
		r.Delete("/credential", h.DeleteCredential)
		r.Post("/credential/test", h.TestCredential)

		r.Get("/profile", h.GetProfile)
		r.Put("/profile", h.SaveProfile)
		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.SaveSettings)
	})

	// Настройка и запуск сервера
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Fatal("Server Shutdown:", err)
	}
	logrus.Info("Server exiting")
}
