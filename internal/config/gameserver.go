package config

import "fmt"

// GameServer holds all configuration for the realtime game server.
type GameServer struct {
	// Network
	BindAddress string `yaml:"bind_address" env:"POLYRIFT_GS_BIND_ADDRESS"`
	Port        int    `yaml:"port" env:"POLYRIFT_GS_PORT"`

	// Logging
	LogLevel string `yaml:"log_level" env:"POLYRIFT_GS_LOG_LEVEL"`

	// Connect tickets are HMAC-signed by the platform that issues them
	// to clients; both sides must hold the same secret.
	TicketSecret string `yaml:"ticket_secret" env:"POLYRIFT_TICKET_SECRET"`

	// Character service endpoint. Empty runs the server without durable
	// progression.
	CharacterServiceURL string `yaml:"character_service_url" env:"POLYRIFT_CHARACTER_SERVICE_URL"`

	// Content files. Empty paths fall back to the compiled-in sets.
	WeaponsPath  string `yaml:"weapons_path" env:"POLYRIFT_GS_WEAPONS_PATH"`
	DungeonsPath string `yaml:"dungeons_path" env:"POLYRIFT_GS_DUNGEONS_PATH"`
}

// Addr returns the listen address in host:port form.
func (c GameServer) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// DefaultGameServer returns GameServer config with sensible defaults.
func DefaultGameServer() GameServer {
	return GameServer{
		BindAddress:         "0.0.0.0",
		Port:                8080,
		LogLevel:            "info",
		TicketSecret:        "dev-ticket-secret",
		CharacterServiceURL: "http://127.0.0.1:8081",
	}
}

// LoadGameServer loads game server config from a YAML file. A missing
// file yields the defaults; environment variables override both.
func LoadGameServer(path string) (GameServer, error) {
	cfg := DefaultGameServer()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
