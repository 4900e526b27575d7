/*
Package config
File: config.go
Description:
    Loads the companion's YAML configuration (roadnav.yaml), fills defaults and
    validates the values the engine depends on. The resulting Config is handed
    to the game state machine fully bound.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/everforgeworks/roadnav/internal/geo"
	"github.com/everforgeworks/roadnav/internal/listener"
)

const (
	DefaultPort          = 21587
	DefaultAcceptTimeout = 30 * time.Second
	DefaultDataTimeout   = 10 * time.Second
	DefaultStatusAddr    = ":8089"
	DefaultRetry         = 5 * time.Second
)

// Config maps directly to roadnav.yaml.
type Config struct {
	BindAddress   string        `yaml:"bind_address"`
	ListenPort    int           `yaml:"listen_port"`
	AcceptTimeout time.Duration `yaml:"accept_timeout"`
	DataTimeout   time.Duration `yaml:"data_timeout"`

	AccessToken string `yaml:"access_token"`

	World       string `yaml:"world"`
	Sport       string `yaml:"sport"`
	SegmentsDir string `yaml:"segments_dir"`
	RoutePath   string `yaml:"route_path"`

	LoopRoute               bool `yaml:"loop_route"`
	EndActivityOnCompletion bool `yaml:"end_activity_on_completion"`

	StatusAddr string `yaml:"status_addr"`

	RelayURL       string        `yaml:"relay_url"`
	InitiatorRetry time.Duration `yaml:"initiator_retry"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenPort:     DefaultPort,
		AcceptTimeout:  DefaultAcceptTimeout,
		DataTimeout:    DefaultDataTimeout,
		World:          "watopia",
		Sport:          "cycling",
		SegmentsDir:    "segments",
		StatusAddr:     DefaultStatusAddr,
		InitiatorRetry: DefaultRetry,
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen_port %d out of range", c.ListenPort))
	}
	if c.AcceptTimeout <= 0 {
		errs = append(errs, errors.New("accept_timeout must be positive"))
	}
	if c.DataTimeout <= 0 {
		errs = append(errs, errors.New("data_timeout must be positive"))
	}
	if _, err := geo.WorldByName(c.World); err != nil {
		errs = append(errs, err)
	}
	if c.Sport != "cycling" && c.Sport != "running" {
		errs = append(errs, fmt.Errorf("sport must be cycling or running, got %q", c.Sport))
	}
	if c.RelayURL != "" && c.InitiatorRetry <= 0 {
		errs = append(errs, errors.New("initiator_retry must be positive when relay_url is set"))
	}
	return errors.Join(errs...)
}

// WorldID resolves the configured world name.
func (c Config) WorldID() geo.WorldID {
	w, err := geo.WorldByName(c.World)
	if err != nil {
		return geo.WorldUnknown
	}
	return w.ID
}

// Listener returns the listener settings.
func (c Config) Listener() listener.Config {
	return listener.Config{
		BindAddress:   c.BindAddress,
		Port:          c.ListenPort,
		AcceptTimeout: c.AcceptTimeout,
		DataTimeout:   c.DataTimeout,
	}
}
