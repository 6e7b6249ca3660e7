package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the relay server configuration.
type Config struct {
	LogLevel   string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort   string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	RoomTTL    time.Duration `yaml:"room-ttl" env:"ROOM_TTL" env-default:"2h"`
	Redis      Redis         `yaml:"redis"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

// Client is the terminal client configuration.
type Client struct {
	LogLevel      string        `yaml:"log-level" env:"TTT_LOG_LEVEL" env-default:"warn"`
	RelayURL      string        `yaml:"relay-url" env:"TTT_RELAY_URL" env-default:"ws://localhost:9091/ws"`
	ComputerDelay time.Duration `yaml:"computer-delay" env:"TTT_COMPUTER_DELAY" env-default:"450ms"`
	Mode          string        `yaml:"mode" env:"TTT_MODE" env-default:"pvp"`
	PlayerXName   string        `yaml:"player-x-name" env:"TTT_PLAYER_X_NAME"`
	PlayerOName   string        `yaml:"player-o-name" env:"TTT_PLAYER_O_NAME"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

// LoadClient reads path when it exists and the environment otherwise.
func LoadClient(path string) (*Client, error) {
	config := &Client{}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		if err = cleanenv.ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to load client config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		if err = cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("unable to load client config from env: %w", err)
		}
	default:
		return nil, fmt.Errorf("unable to stat client config %s: %w", path, err)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" || that.Port == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

// ParseLevel maps a config level name to slog; unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
