// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/portrelay/lib/endpoint"
)

// EnvironmentVariable names the config file read by Load.
const EnvironmentVariable = "PORTRELAY_CONFIG"

// Probe names accepted in remote.probes.
const (
	ProbeResolvConf = "resolvconf"
	ProbeGateway    = "gateway"
)

// Log formats accepted in logging.format.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the complete relay configuration.
type Config struct {
	// Preset names the deployment whose values form the base of this
	// configuration. Empty means the defaults.
	Preset string `yaml:"preset"`

	Listen  ListenConfig  `yaml:"listen"`
	Remote  RemoteConfig  `yaml:"remote"`
	Relay   RelayConfig   `yaml:"relay"`
	Logging LoggingConfig `yaml:"logging"`
	Control ControlConfig `yaml:"control"`
}

// ListenConfig is the local side of the relay.
type ListenConfig struct {
	// Host to bind. Empty binds all interfaces.
	Host string `yaml:"host"`

	// Port to bind. Default: 9222.
	Port int `yaml:"port"`
}

// RemoteConfig controls how the remote endpoint is found.
type RemoteConfig struct {
	// Host, when set, is dialed as is and no probe runs.
	Host string `yaml:"host"`

	// Port is the remote port, whichever way the host is found.
	// Default: 9222.
	Port int `yaml:"port"`

	// Probes are tried in order when Host is empty. Values: "resolvconf",
	// "gateway". Default: [resolvconf].
	Probes []string `yaml:"probes"`

	// ResolvConf is the file read by the resolvconf probe.
	// Default: /etc/resolv.conf
	ResolvConf string `yaml:"resolv_conf"`

	// RouteTable is the file read by the gateway probe.
	// Default: /proc/net/route
	RouteTable string `yaml:"route_table"`

	// FallbackHost is dialed when every probe fails. Default: 127.0.0.1
	FallbackHost string `yaml:"fallback_host"`
}

// RelayConfig tunes the forwarding itself.
type RelayConfig struct {
	// DialTimeout bounds each remote dial. Zero leaves it to the OS.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// IdleTimeout closes a bridge when neither direction moves bytes
	// for this long. Zero, the default, never times out.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// BufferSize is the chunk size of each direction. Default: 32768.
	BufferSize int `yaml:"buffer_size"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info.
	Level string `yaml:"level"`

	// Format is auto, text or json. Auto picks text when stderr is a
	// terminal and json otherwise. Default: auto.
	Format string `yaml:"format"`
}

// ControlConfig configures the status socket.
type ControlConfig struct {
	// Socket is the Unix socket path for status queries. Empty disables
	// the control socket.
	Socket string `yaml:"socket"`
}

// Default returns the configuration used when no file is given. It
// matches the resolvconf preset.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{
			Port: endpoint.DefaultPort,
		},
		Remote: RemoteConfig{
			Port:         endpoint.DefaultPort,
			Probes:       []string{ProbeResolvConf},
			ResolvConf:   endpoint.DefaultResolvConfPath,
			RouteTable:   endpoint.DefaultRouteTablePath,
			FallbackHost: endpoint.LoopbackHost,
		},
		Relay: RelayConfig{
			BufferSize: 32 * 1024,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: FormatAuto,
		},
	}
}

// Presets lists the known preset names.
func Presets() []string {
	return []string{"resolvconf", "portproxy"}
}

// ApplyPreset overwrites the fields a preset controls.
func (c *Config) ApplyPreset(name string) error {
	switch name {
	case "resolvconf":
		c.Remote.Port = 9222
		c.Remote.Probes = []string{ProbeResolvConf}
	case "portproxy":
		c.Remote.Port = 9223
		c.Remote.Probes = []string{ProbeGateway, ProbeResolvConf}
	default:
		return fmt.Errorf("config: unknown preset %q (known: %s)", name, strings.Join(Presets(), ", "))
	}
	c.Preset = name
	return nil
}

// Load loads the file named by PORTRELAY_CONFIG. It fails if the
// variable is unset; callers that can run without a file use Default.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of a portrelay config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path. Fields absent from the file
// keep their default (or preset) values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration bytes. extension selects the syntax:
// ".json" and ".jsonc" are JSON with comments, anything else is YAML.
func Parse(data []byte, extension string) (*Config, error) {
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so one decoder and one set of tags
		// serve both once comments are gone.
		data = jsonc.ToJSON(data)
	}

	var header struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, err
	}

	cfg := Default()
	if header.Preset != "" {
		if err := cfg.ApplyPreset(header.Preset); err != nil {
			return nil, err
		}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	c.Control.Socket = expandVars(c.Control.Socket)
	c.Remote.ResolvConf = expandVars(c.Remote.ResolvConf)
	c.Remote.RouteTable = expandVars(c.Remote.RouteTable)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		errs = append(errs, fmt.Errorf("listen.port %d out of range", c.Listen.Port))
	}
	if c.Remote.Port < 1 || c.Remote.Port > 65535 {
		errs = append(errs, fmt.Errorf("remote.port %d out of range 1-65535", c.Remote.Port))
	}
	knownProbes := []string{ProbeResolvConf, ProbeGateway}
	for _, probe := range c.Remote.Probes {
		if !slices.Contains(knownProbes, probe) {
			errs = append(errs, fmt.Errorf("remote.probes: unknown probe %q (known: %s)", probe, strings.Join(knownProbes, ", ")))
		}
	}
	if c.Remote.FallbackHost == "" {
		errs = append(errs, fmt.Errorf("remote.fallback_host is required"))
	}
	if c.Relay.DialTimeout < 0 {
		errs = append(errs, fmt.Errorf("relay.dial_timeout must not be negative"))
	}
	if c.Relay.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("relay.idle_timeout must not be negative"))
	}
	if c.Relay.BufferSize < 0 {
		errs = append(errs, fmt.Errorf("relay.buffer_size must not be negative"))
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	formats := []string{FormatAuto, FormatText, FormatJSON}
	if !slices.Contains(formats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", formats))
	}

	return errors.Join(errs...)
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}

// ListenEndpoint returns the local endpoint to bind.
func (c *Config) ListenEndpoint() endpoint.Endpoint {
	return endpoint.Endpoint{Host: c.Listen.Host, Port: c.Listen.Port}
}

// FallbackEndpoint returns the endpoint used when no resolver succeeds.
func (c *Config) FallbackEndpoint() endpoint.Endpoint {
	return endpoint.Endpoint{Host: c.Remote.FallbackHost, Port: c.Remote.Port}
}

// Resolvers returns the remote endpoint strategies in the order they
// are tried. A configured host short-circuits the probes.
func (c *Config) Resolvers() []endpoint.Named {
	if c.Remote.Host != "" {
		return []endpoint.Named{{
			Name:     "static",
			Resolver: endpoint.Static{Endpoint: endpoint.Endpoint{Host: c.Remote.Host, Port: c.Remote.Port}},
		}}
	}

	var resolvers []endpoint.Named
	for _, probe := range c.Remote.Probes {
		switch probe {
		case ProbeResolvConf:
			resolvers = append(resolvers, endpoint.Named{
				Name:     probe,
				Resolver: endpoint.ResolvConf{Path: c.Remote.ResolvConf, Port: c.Remote.Port},
			})
		case ProbeGateway:
			resolvers = append(resolvers, endpoint.Named{
				Name:     probe,
				Resolver: endpoint.Gateway{Path: c.Remote.RouteTable, Port: c.Remote.Port},
			})
		}
	}
	return resolvers
}
