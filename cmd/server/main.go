package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gookit/color"
	"github.com/lmittmann/tint"
	"github.com/oarkflow/squealx/drivers/sqlite"

	"github.com/oarkflow/tcloud-auth/pkg/config"
	"github.com/oarkflow/tcloud-auth/pkg/http/handlers"
	"github.com/oarkflow/tcloud-auth/pkg/http/routes"
	"github.com/oarkflow/tcloud-auth/pkg/libs"
	"github.com/oarkflow/tcloud-auth/pkg/storage"
	"github.com/oarkflow/tcloud-auth/pkg/web"
)

func main() {
	envPath := flag.String("env", ".env", "path to .env file")
	mintToken := flag.Bool("mint-token", false, "mint a registration token and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "validity of a minted registration token")
	flag.Parse()

	cfg := config.New(*envPath, false, nil)
	log := newLogger(cfg)

	db, err := sqlite.Open(cfg.GetString("db.path"), "sqlite")
	if err != nil {
		color.Red.Println("failed to open database: " + err.Error())
		os.Exit(1)
	}
	vault, err := storage.New(db)
	if err != nil {
		color.Red.Println("failed to initialize vault: " + err.Error())
		os.Exit(1)
	}

	if *mintToken {
		tokenBytes := make([]byte, 32)
		if _, err := rand.Read(tokenBytes); err != nil {
			color.Red.Println("failed to generate token: " + err.Error())
			os.Exit(1)
		}
		tokenStr := hex.EncodeToString(tokenBytes)
		expiresAt := time.Now().Add(*tokenTTL).Unix()
		if err := vault.CreateRegistrationToken(tokenStr, expiresAt); err != nil {
			color.Red.Println("failed to store token: " + err.Error())
			os.Exit(1)
		}
		fmt.Println(tokenStr)
		return
	}

	prefix := config.NormalizePrefix(cfg.GetString("app.prefix"))
	security := libs.NewSecurityManager(
		cfg.GetInt("auth.rate_limit_requests", 30),
		cfg.GetDuration("auth.rate_limit_window", "1m"),
	)

	app := fiber.New(fiber.Config{
		Views:                 web.Engine(),
		DisableStartupMessage: true,
	})
	routes.Setup(prefix, app, handlers.New(vault, cfg, log), security)

	addr := cfg.GetString("app.addr")
	go func() {
		color.Green.Printf("Listening on %s (prefix %s)\n", addr, prefix)
		if err := app.Listen(addr); err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.GetString("app.log_level", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}
