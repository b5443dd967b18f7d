package main

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type config struct {
	MQTTBrokerURL       string        `yaml:"mqtt_broker_url"`
	MQTTTopic           string        `yaml:"mqtt_topic"`
	MQTTClientID        string        `yaml:"mqtt_client_id"`
	ClassifierURL       string        `yaml:"classifier_url"`
	ClassifierTimeout   time.Duration `yaml:"-"`
	DatabaseURL         string        `yaml:"database_url"`
	HTTPAddr            string        `yaml:"http_addr"`
	AlertWebhookURL     string        `yaml:"alert_webhook_url"`
	AlertNotifyCooldown time.Duration `yaml:"-"`
	JWTSecret           string        `yaml:"jwt_secret"`
}

// loadConfig reads env vars, then overlays an optional yaml file pointed at by
// RAILGUARD_CONFIG. Values present in the file win over env. Durations are
// env-only (Go duration syntax, e.g. "5m").
func loadConfig() config {
	cfg := config{
		MQTTBrokerURL:       getenvDefault("MQTT_BROKER_URL", ""),
		MQTTTopic:           getenvDefault("MQTT_TOPIC", "rail/telemetry"),
		MQTTClientID:        getenvDefault("MQTT_CLIENT_ID", "railguard-cloud"),
		ClassifierURL:       getenvDefault("CLASSIFIER_URL", "http://127.0.0.1:5000/predict"),
		ClassifierTimeout:   getenvDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
		DatabaseURL:         getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:            getenvDefault("HTTP_ADDR", ":8080"),
		AlertWebhookURL:     getenvDefault("ALERT_WEBHOOK_URL", ""),
		AlertNotifyCooldown: getenvDuration("ALERT_NOTIFY_COOLDOWN", 5*time.Minute),
		JWTSecret:           getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}

	if path := os.Getenv("RAILGUARD_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("config file error: %v", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("config file parse error: %v", err)
		}
	}

	if cfg.MQTTBrokerURL == "" {
		log.Fatal("MQTT_BROKER_URL is required")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
