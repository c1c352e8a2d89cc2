package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
		MaxIdleConns  int
	}

	Config struct {
		Env                  string
		Build                string
		Debug                bool
		TestMode             bool
		AppName              string
		WorkDir              string
		FrontendBaseURL      string
		SendgridApiKey       string
		RollbarToken         string
		Location             *time.Location
		DefaultMaxApplicants int
		Server               ServerConfig
		Database             DatabaseConfig

		defaultFromEmail string
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultFromEmail parses the configured sender, falling back to noreply@<server host>.
func (c *Config) DefaultFromEmail() mail.Address {
	if addr, err := mail.ParseAddress(c.defaultFromEmail); err == nil {
		return *addr
	}
	return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
}

// Today returns the current calendar date in the configured location.
func (c *Config) Today() time.Time {
	return TruncateDate(nowFunc().In(c.location()))
}

func (c *Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// NewConfig loads the configuration of the current environment (ENV: DEV, TEST, QA, PROD).
// Values come from the process environment, optionally seeded by config/.env.<env>.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Assoc")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "Assoc <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("defaultMaxApplicants", 100)

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "assoc")
	v.SetDefault("database.user", "assoc")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.maxOpenConns", 20)
	v.SetDefault("database.maxIdleConns", 10)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir, _ := os.Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		log.Fatalf("config.timezone(%s): %v", v.GetString("timezone"), err)
	}

	return &Config{
		Env:                  env,
		Build:                v.GetString("build"),
		Debug:                v.GetBool("debug"),
		TestMode:             v.GetBool("testMode"),
		AppName:              v.GetString("appName"),
		WorkDir:              workDir,
		FrontendBaseURL:      v.GetString("frontendBaseURL"),
		SendgridApiKey:       v.GetString("sendgridApiKey"),
		RollbarToken:         v.GetString("rollbarToken"),
		Location:             loc,
		DefaultMaxApplicants: v.GetInt("defaultMaxApplicants"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
			MaxIdleConns:  v.GetInt("database.maxIdleConns"),
		},
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}

// NewTestConfig returns a Config suited for tests: no .env lookup, UTC, console mails.
func NewTestConfig() *Config {
	wd, _ := os.Getwd()
	return &Config{
		Env:                  "TEST",
		Build:                "test",
		Debug:                false,
		TestMode:             true,
		AppName:              "Assoc",
		WorkDir:              wd,
		FrontendBaseURL:      "http://localhost:8080",
		Location:             time.UTC,
		DefaultMaxApplicants: 100,
		Server: ServerConfig{
			ShutdownTimeout: time.Second,
		},
		defaultFromEmail: "Assoc <noreply@localhost>",
	}
}
