package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`

	// client
	CredentialEndpoint  string        `mapstructure:"credential_endpoint"`
	SandboxID           string        `mapstructure:"sandbox_id"`
	AgentName           string        `mapstructure:"agent_name"`
	PreConnectBuffer    bool          `mapstructure:"pre_connect_buffer"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	AgentCheckDelay     time.Duration `mapstructure:"agent_check_delay"`

	// tokend
	Port      int           `mapstructure:"port"`
	ServerURL string        `mapstructure:"server_url"`
	RoomName  string        `mapstructure:"room_name"`
	Secret    string        `mapstructure:"secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("credential_endpoint", "http://localhost:8080/api/connection-details")
	v.SetDefault("sandbox_id", "dev")
	v.SetDefault("pre_connect_buffer", true)
	v.SetDefault("confirmation_timeout", "10s")
	v.SetDefault("agent_check_delay", "2s")
	v.SetDefault("port", 8080)
	v.SetDefault("server_url", "ws://localhost:7880")
	v.SetDefault("room_name", "voicelink")
	v.SetDefault("token_ttl", "1h")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("config loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
