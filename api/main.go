package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const version = "1.0.0"

type config struct {
	Port      int    `env:"PORT" env-default:"3000"`
	Env       string `env:"ENV" env-default:"development"`
	MongoURL  string `env:"MONGO_URL"`
	MongoDB   string `env:"MONGO_DB" env-default:"taskmanager"`
	JWTSecret string `env:"JWT_SECRET"`
	SMTP      struct {
		Host     string `env:"SMTP_HOST"`
		Port     int    `env:"SMTP_PORT" env-default:"25"`
		Username string `env:"SMTP_USERNAME"`
		Password string `env:"SMTP_PASSWORD"`
		Sender   string `env:"SMTP_SENDER"`
	}
}

type application struct {
	config  config
	storage storage
	mailer  *mailer
}

func errAttr(err error) slog.Attr {
	return slog.Attr{Key: "error", Value: slog.StringValue(err.Error())}
}

func setupLogger(env string) {
	level := slog.LevelDebug
	if env == "production" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadConfig resolves the process configuration once at startup. A missing
// .env file is not an error; the variables may come from the real
// environment instead.
func loadConfig() (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config{}, err
	}
	var cfg config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.MongoURL == "" {
		return cfg, errors.New("MONGO_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET must be set")
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("configuration error", errAttr(err))
		os.Exit(1)
	}
	setupLogger(cfg.Env)

	client, err := openDB(cfg)
	if err != nil {
		slog.Error("database connection failed", errAttr(err))
		os.Exit(1)
	}
	defer client.Disconnect(context.Background())
	slog.Info("established a connection with database")

	store, err := newMongoStorage(client, cfg.MongoDB)
	if err != nil {
		slog.Error("storage initialization failed", errAttr(err))
		os.Exit(1)
	}

	app := &application{
		config:  cfg,
		storage: store,
		mailer:  newMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      composeRoutes(app),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	shutdownErr := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		slog.Info("shutting down server", "signal", s.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		shutdownErr <- srv.Shutdown(ctx)
	}()

	slog.Info("starting server", "env", cfg.Env, "port", cfg.Port)
	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", errAttr(err))
		os.Exit(1)
	}
	if err := <-shutdownErr; err != nil {
		slog.Error("server shutdown failed", errAttr(err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}
