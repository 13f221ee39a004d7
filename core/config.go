package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Debug     bool
	TestMode  bool
	Env       string
	Build     string
	AppName   string
	SecretKey string

	RollbarToken string

	Server struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
		SessionCookie   string
		SessionTTL      time.Duration
	}

	API struct {
		BaseURL string
		Timeout time.Duration
	}

	Database struct {
		URL string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}
}

// NewConfig loads the app configuration from the environment;
// an optional `config/.env.<env>` file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Darasa")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "w3p!x0q5-zer)amb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$ceg")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("sessionCookie", "darasa_session")
	v.SetDefault("sessionTTL", 7*24*time.Hour)
	v.SetDefault("apiBaseURL", "http://localhost:9000/api/v1")
	v.SetDefault("apiTimeout", 30*time.Second)
	v.SetDefault("databaseURL", "")
	v.SetDefault("redisAddr", "")
	v.SetDefault("redisPassword", "")
	v.SetDefault("redisDB", 0)
	v.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Server.SessionCookie = v.GetString("sessionCookie")
	conf.Server.SessionTTL = v.GetDuration("sessionTTL")
	conf.API.BaseURL = strings.TrimRight(v.GetString("apiBaseURL"), "/")
	conf.API.Timeout = v.GetDuration("apiTimeout")
	conf.Database.URL = v.GetString("databaseURL")
	conf.Redis.Addr = v.GetString("redisAddr")
	conf.Redis.Password = v.GetString("redisPassword")
	conf.Redis.DB = v.GetInt("redisDB")
	return conf
}
