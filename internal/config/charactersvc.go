package config

import "fmt"

// CharacterService holds all configuration for the character REST
// service.
type CharacterService struct {
	// Network
	BindAddress string `yaml:"bind_address" env:"POLYRIFT_CHARSVC_BIND_ADDRESS"`
	Port        int    `yaml:"port" env:"POLYRIFT_CHARSVC_PORT"`

	// Logging
	LogLevel string `yaml:"log_level" env:"POLYRIFT_CHARSVC_LOG_LEVEL"`

	// Database
	Database DatabaseConfig `yaml:"database" envPrefix:"POLYRIFT_DB_"`
}

// Addr returns the listen address in host:port form.
func (c CharacterService) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

// DefaultCharacterService returns CharacterService config with sensible
// defaults.
func DefaultCharacterService() CharacterService {
	return CharacterService{
		BindAddress: "0.0.0.0",
		Port:        8081,
		LogLevel:    "info",
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "polyrift",
			Password: "polyrift",
			DBName:   "polyrift",
			SSLMode:  "disable",
		},
	}
}

// LoadCharacterService loads character service config from a YAML file.
// A missing file yields the defaults; environment variables override
// both.
func LoadCharacterService(path string) (CharacterService, error) {
	cfg := DefaultCharacterService()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
