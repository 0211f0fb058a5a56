package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"habitly/internal/auth"
	"habitly/internal/db"
	"habitly/internal/handlers"
	mw "habitly/internal/middleware"
	"habitly/internal/services"
	"habitly/internal/store"
)

func mustGetenv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func main() {
	_ = godotenv.Load()

	env := mustGetenv("ENV", "development")
	var logger *zap.Logger
	var err error
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	encryptionKey, err := base64.StdEncoding.DecodeString(os.Getenv("ENCRYPTION_KEY"))
	if err != nil || len(encryptionKey) != 32 {
		logger.Fatal("ENCRYPTION_KEY must be 32 base64-encoded bytes")
	}

	port := mustGetenv("PORT", "8080")

	dbConn, err := sqlx.Open("pgx", databaseURL)
	if err != nil {
		logger.Fatal("failed to open db", zap.Error(err))
	}
	dbConn.SetMaxOpenConns(10)
	dbConn.SetConnMaxLifetime(2 * time.Hour)
	if err = dbConn.Ping(); err != nil {
		logger.Fatal("failed to ping db", zap.Error(err))
	}
	if err := db.RunMigrations(dbConn); err != nil {
		logger.Fatal("failed migrations", zap.Error(err))
	}

	encSvc, err := services.NewEncryptionService(encryptionKey)
	if err != nil {
		logger.Fatal("failed to init encryption", zap.Error(err))
	}

	stores := store.NewPostgres(dbConn)
	tokens := auth.NewTokenService([]byte(jwtSecret))
	converter := services.NewConversionService(stores, logger)
	secureCookies := env == "production"

	authHandler := handlers.NewAuthHandler(stores.Users, tokens, converter, logger, secureCookies)
	userHandler := handlers.NewUserHandler(dbConn)
	habitHandler := handlers.NewHabitHandler(dbConn)
	statsHandler := handlers.NewStatsHandler(dbConn)
	questionnaireHandler := handlers.NewQuestionnaireHandler(dbConn, encSvc, logger)
	authMW := mw.NewAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(mw.ZapRequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", authHandler.Login)
		api.Post("/auth/guest", authHandler.GuestLogin)
		api.Post("/auth/logout", authHandler.Logout)
		api.Group(func(cr chi.Router) {
			cr.Use(authMW.Classify)
			cr.Post("/auth/register", authHandler.Register)
			cr.Post("/auth/convert-guest", authHandler.ConvertGuest)
		})
		api.Group(func(pr chi.Router) {
			pr.Use(authMW.RequireAuth)
			pr.Get("/users/me", userHandler.GetMe)
			pr.Put("/users/me", userHandler.UpdateMe)
			pr.Post("/habits", habitHandler.Create)
			pr.Get("/habits", habitHandler.List)
			pr.Put("/habits/{id}", habitHandler.Update)
			pr.Delete("/habits/{id}", habitHandler.Delete)
			pr.Post("/habits/{id}/logs", habitHandler.Log)
			pr.Get("/habits/logs", habitHandler.Logs)
			pr.Get("/habits/stats", statsHandler.Get)
			pr.Get("/questionnaire", questionnaireHandler.Get)
			pr.Put("/questionnaire", questionnaireHandler.Save)
		})
	})

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		logger.Info("server starting", zap.String("addr", ":"+port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown initiated")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("server stopped")
}
