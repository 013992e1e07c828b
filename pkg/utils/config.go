package utils

import (
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Razorpay RazorpayConfig
	Worker   WorkerConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RazorpayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
}

type WorkerConfig struct {
	Count          int
	QueueSize      int
	MaxAttempts    int
	BackoffSeconds int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1")
	viper.SetDefault("RAZORPAY_CURRENCY", "INR")
	viper.SetDefault("WORKER_COUNT", 4)
	viper.SetDefault("WORKER_QUEUE_SIZE", 256)
	viper.SetDefault("WORKER_MAX_ATTEMPTS", 3)
	viper.SetDefault("WORKER_BACKOFF_SECONDS", 5)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Razorpay: RazorpayConfig{
			BaseURL:       viper.GetString("RAZORPAY_BASE_URL"),
			KeyID:         viper.GetString("RAZORPAY_KEY_ID"),
			KeySecret:     viper.GetString("RAZORPAY_KEY_SECRET"),
			WebhookSecret: viper.GetString("RAZORPAY_WEBHOOK_SECRET"),
			Currency:      viper.GetString("RAZORPAY_CURRENCY"),
		},
		Worker: WorkerConfig{
			Count:          viper.GetInt("WORKER_COUNT"),
			QueueSize:      viper.GetInt("WORKER_QUEUE_SIZE"),
			MaxAttempts:    viper.GetInt("WORKER_MAX_ATTEMPTS"),
			BackoffSeconds: viper.GetInt("WORKER_BACKOFF_SECONDS"),
		},
	}

	return config, nil
}
