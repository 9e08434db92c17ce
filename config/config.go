package config

import (
	logger "github.com/Bparsons0904/goLogger"
	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion             string  `mapstructure:"GENERAL_VERSION"`
	Environment                string  `mapstructure:"ENVIRONMENT"`
	ServerPort                 int     `mapstructure:"SERVER_PORT"`
	DatabaseHost               string  `mapstructure:"DB_HOST"`
	DatabasePort               int     `mapstructure:"DB_PORT"`
	DatabaseName               string  `mapstructure:"DB_NAME"`
	DatabaseUser               string  `mapstructure:"DB_USER"`
	DatabasePassword           string  `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress       string  `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort          int     `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset         int     `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins           string  `mapstructure:"CORS_ALLOW_ORIGINS"`
	JWTSecret                  string  `mapstructure:"JWT_SECRET"`
	JWTIssuer                  string  `mapstructure:"JWT_ISSUER"`
	SoundCloudAPIBaseURL       string  `mapstructure:"SOUNDCLOUD_API_BASE_URL"`
	SpotifyAPIBaseURL          string  `mapstructure:"SPOTIFY_API_BASE_URL"`
	ProviderRequestsPerSecond  float64 `mapstructure:"PROVIDER_REQUESTS_PER_SECOND"`
	ProviderTimeoutSeconds     int     `mapstructure:"PROVIDER_TIMEOUT_SECONDS"`
	SchedulerEnabled           bool    `mapstructure:"SCHEDULER_ENABLED"`
	RecommendationCacheMinutes int     `mapstructure:"RECOMMENDATION_CACHE_TTL_MINUTES"`
}

var ConfigInstance Config

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	viper.AutomaticEnv()

	viper.SetDefault("SOUNDCLOUD_API_BASE_URL", "https://api.soundcloud.com")
	viper.SetDefault("SPOTIFY_API_BASE_URL", "https://api.spotify.com/v1")
	viper.SetDefault("PROVIDER_REQUESTS_PER_SECOND", 5)
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 15)
	viper.SetDefault("RECOMMENDATION_CACHE_TTL_MINUTES", 30)
	viper.SetDefault("DB_CACHE_RESET", -1)

	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
		"CORS_ALLOW_ORIGINS",
		"JWT_SECRET", "JWT_ISSUER",
		"SOUNDCLOUD_API_BASE_URL", "SPOTIFY_API_BASE_URL",
		"PROVIDER_REQUESTS_PER_SECOND", "PROVIDER_TIMEOUT_SECONDS",
		"SCHEDULER_ENABLED", "RECOMMENDATION_CACHE_TTL_MINUTES",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}

	log.Info(
		"Successfully initialized config",
		"environment", config.Environment,
		"port", config.ServerPort,
		"schedulerEnabled", config.SchedulerEnabled,
	)
	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error(
			"Fatal error: invalid server port",
			"port", config.ServerPort,
		)
	}

	if config.JWTSecret == "" {
		return log.ErrMsg("Fatal error: JWT_SECRET is required")
	}

	if config.ProviderRequestsPerSecond <= 0 {
		return log.Error(
			"Fatal error: PROVIDER_REQUESTS_PER_SECOND must be positive",
			"value", config.ProviderRequestsPerSecond,
		)
	}

	if config.ProviderTimeoutSeconds <= 0 {
		return log.Error(
			"Fatal error: PROVIDER_TIMEOUT_SECONDS must be positive",
			"value", config.ProviderTimeoutSeconds,
		)
	}

	ConfigInstance = config
	return nil
}
