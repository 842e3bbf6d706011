package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	k *koanf.Koanf
}

// New initializes a new config instance from an optional .env file and the
// process environment.
func New(envPath string, watchEnv bool, callback func()) *Config {
	k := koanf.New(".")
	app := &Config{k: k}
	f := file.Provider(envPath)
	if _, err := os.Stat(envPath); err == nil {
		if err := app.k.Load(f, dotenv.Parser()); err != nil {
			color.Red.Println("Error loading .env file: " + err.Error())
			os.Exit(1)
		}
	}

	if err := app.k.Load(env.Provider("", ".", nil), nil); err != nil {
		color.Red.Println("Error loading environment variables: " + err.Error())
		os.Exit(1)
	}
	if watchEnv {
		f.Watch(func(event interface{}, err error) {
			if err != nil {
				log.Printf("watch error: %v", err)
				return
			}
			if callback != nil {
				callback()
			}
		})
	}
	app.loadDefaults()
	return app
}

func (app *Config) loadDefaults() {
	app.Add("app", map[string]any{
		"name":   "tcloud-auth",
		"addr":   app.Env("APP_ADDR", ":8080"),
		"prefix": app.Env("APP_PREFIX", ""),

		"log_level": app.Env("APP_LOG_LEVEL", "info"),
	})
	app.Add("auth", map[string]any{
		"secret":          app.Env("AUTH_SECRET", "0b7fca8dbd2df89b4757b18d00e56bbf"),
		"issuer":          app.Env("AUTH_ISSUER", "Tiny Cloud"),
		"password_algo":   app.Env("AUTH_PASSWORD_ALGO", "bcrypt"),
		"session_name":    app.Env("AUTH_SESSION_NAME", "tcloud_session"),
		"session_timeout": app.Env("AUTH_SESSION_TIMEOUT", "24h"),
		"token_ttl":       app.Env("AUTH_TOKEN_TTL", "24h"),

		"rate_limit_requests": app.Env("AUTH_RATE_LIMIT_REQUESTS", 30),
		"rate_limit_window":   app.Env("AUTH_RATE_LIMIT_WINDOW", "1m"),
	})
	app.Add("db", map[string]any{
		"path": app.Env("DB_PATH", "vault.db"),
	})
}

// Env retrieves a config value from the environment with an optional default.
func (app *Config) Env(envName string, defaultValue ...any) any {
	value := app.k.Get(envName)
	if value == nil {
		if len(defaultValue) > 0 {
			return defaultValue[0]
		}
		return nil
	}
	return value
}

// Add adds a configuration to the application.
func (app *Config) Add(name string, configuration any) {
	if err := app.k.Set(name, configuration); err != nil {
		panic(err)
	}
}

// Get retrieves a config value from the application.
func (app *Config) Get(path string, defaultValue ...any) any {
	value := app.k.Get(path)
	if value == nil {
		if len(defaultValue) > 0 {
			return defaultValue[0]
		}
		return nil
	}
	return value
}

// GetString retrieves a string type config value from the application.
func (app *Config) GetString(path string, defaultValue ...any) string {
	value := app.Get(path, defaultValue...)
	if strVal, ok := value.(string); ok {
		return strVal
	}
	if len(defaultValue) > 0 {
		return fmt.Sprintf("%v", defaultValue[0])
	}
	return ""
}

// GetInt retrieves an int type config value from the application.
func (app *Config) GetInt(path string, defaultValue ...any) int {
	value := app.Get(path, defaultValue...)
	switch v := value.(type) {
	case int:
		return v
	case string:
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0].(int)
	}
	return 0
}

func (app *Config) GetDuration(path string, defaultValue ...any) time.Duration {
	value := app.Get(path, defaultValue...)
	if duration, ok := value.(time.Duration); ok {
		return duration
	}
	if strVal, ok := value.(string); ok {
		if duration, err := time.ParseDuration(strVal); err == nil {
			return duration
		}
	}
	if len(defaultValue) > 0 {
		dur := defaultValue[0]
		switch d := dur.(type) {
		case time.Duration:
			return d
		case string:
			if duration, err := time.ParseDuration(d); err == nil {
				return duration
			}
		}
	}
	return 0
}

// GetBool retrieves a bool type config value from the application.
func (app *Config) GetBool(path string, defaultValue ...any) bool {
	value := app.Get(path, defaultValue...)
	switch v := value.(type) {
	case bool:
		return v
	case string:
		if boolVal, err := strconv.ParseBool(v); err == nil {
			return boolVal
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0].(bool)
	}
	return false
}

// PrefixValue returns the bare path prefix for the app.prefix setting, with
// surrounding slashes and whitespace removed. This is the value served in
// the page's tcloud-prefix meta tag.
func PrefixValue(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "/")
}

// NormalizePrefix returns the routing prefix for a raw app.prefix setting:
// "/" when the value is empty, "/<value>/" otherwise.
func NormalizePrefix(raw string) string {
	value := PrefixValue(raw)
	if value == "" {
		return "/"
	}
	return "/" + value + "/"
}
