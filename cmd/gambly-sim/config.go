package main

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the simulator
type Config struct {
	// Store backend: mem, file or redis
	StoreBackend string `env:"STORE_BACKEND" envDefault:"mem"`
	StatePath    string `env:"STATE_PATH" envDefault:"gambly-state.json"`

	// Redis (only used when STORE_BACKEND=redis)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Simulation shape
	PokerHands      int `env:"POKER_HANDS" envDefault:"5"`
	PokerBots       int `env:"POKER_BOTS" envDefault:"4"`
	BlackjackRounds int `env:"BLACKJACK_ROUNDS" envDefault:"3"`
}

// LoadConfig loads the .env file if present, then parses environment
// variables into a Config struct.
func LoadConfig() (Config, error) {
	godotenv.Load()
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
