// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/portrelay/lib/endpoint"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen.Host != "" {
		t.Errorf("Listen.Host = %q, want all interfaces", cfg.Listen.Host)
	}
	if cfg.Listen.Port != 9222 {
		t.Errorf("Listen.Port = %d, want 9222", cfg.Listen.Port)
	}
	if cfg.Remote.Port != 9222 {
		t.Errorf("Remote.Port = %d, want 9222", cfg.Remote.Port)
	}
	if len(cfg.Remote.Probes) != 1 || cfg.Remote.Probes[0] != ProbeResolvConf {
		t.Errorf("Remote.Probes = %v, want [resolvconf]", cfg.Remote.Probes)
	}
	if cfg.Remote.FallbackHost != "127.0.0.1" {
		t.Errorf("Remote.FallbackHost = %q, want 127.0.0.1", cfg.Remote.FallbackHost)
	}
	if cfg.Relay.BufferSize != 32*1024 {
		t.Errorf("Relay.BufferSize = %d, want 32768", cfg.Relay.BufferSize)
	}
	if cfg.Relay.IdleTimeout != 0 || cfg.Relay.DialTimeout != 0 {
		t.Errorf("timeouts = %v/%v, want none", cfg.Relay.DialTimeout, cfg.Relay.IdleTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestDefaultMatchesResolvConfPreset(t *testing.T) {
	preset := Default()
	if err := preset.ApplyPreset("resolvconf"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	defaults := Default()
	if preset.Remote.Port != defaults.Remote.Port {
		t.Errorf("preset port %d, default %d", preset.Remote.Port, defaults.Remote.Port)
	}
	if strings.Join(preset.Remote.Probes, ",") != strings.Join(defaults.Remote.Probes, ",") {
		t.Errorf("preset probes %v, default %v", preset.Remote.Probes, defaults.Remote.Probes)
	}
}

func TestApplyPresetPortProxy(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyPreset("portproxy"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if cfg.Remote.Port != 9223 {
		t.Errorf("Remote.Port = %d, want 9223", cfg.Remote.Port)
	}
	if got := strings.Join(cfg.Remote.Probes, ","); got != "gateway,resolvconf" {
		t.Errorf("Remote.Probes = %s, want gateway,resolvconf", got)
	}
	if cfg.Listen.Port != 9222 {
		t.Errorf("Listen.Port = %d, preset must not move the local port", cfg.Listen.Port)
	}
}

func TestApplyPresetUnknown(t *testing.T) {
	err := Default().ApplyPreset("carrier-pigeon")
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !strings.Contains(err.Error(), "carrier-pigeon") {
		t.Errorf("error %q does not name the preset", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := writeConfig(t, "relay.yaml", `
listen:
  host: 127.0.0.1
  port: 19222
remote:
  host: 172.30.240.1
relay:
  dial_timeout: 5s
  idle_timeout: 2m
logging:
  level: debug
  format: json
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Listen.Host != "127.0.0.1" || cfg.Listen.Port != 19222 {
		t.Errorf("Listen = %+v", cfg.Listen)
	}
	if cfg.Remote.Host != "172.30.240.1" {
		t.Errorf("Remote.Host = %q", cfg.Remote.Host)
	}
	// Unset fields keep their defaults.
	if cfg.Remote.Port != 9222 {
		t.Errorf("Remote.Port = %d, want default 9222", cfg.Remote.Port)
	}
	if cfg.Relay.BufferSize != 32*1024 {
		t.Errorf("Relay.BufferSize = %d, want default", cfg.Relay.BufferSize)
	}
	if cfg.Relay.DialTimeout != 5*time.Second {
		t.Errorf("Relay.DialTimeout = %v, want 5s", cfg.Relay.DialTimeout)
	}
	if cfg.Relay.IdleTimeout != 2*time.Minute {
		t.Errorf("Relay.IdleTimeout = %v, want 2m", cfg.Relay.IdleTimeout)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != FormatJSON {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	path := writeConfig(t, "relay.jsonc", `{
  // Windows host exposes the debugger through a port proxy.
  "preset": "portproxy",
  "listen": {"port": 9333},
  "control": {"socket": "/run/portrelay.sock",},
}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Preset != "portproxy" {
		t.Errorf("Preset = %q", cfg.Preset)
	}
	if cfg.Remote.Port != 9223 {
		t.Errorf("Remote.Port = %d, want preset value 9223", cfg.Remote.Port)
	}
	if cfg.Listen.Port != 9333 {
		t.Errorf("Listen.Port = %d, want 9333", cfg.Listen.Port)
	}
	if cfg.Control.Socket != "/run/portrelay.sock" {
		t.Errorf("Control.Socket = %q", cfg.Control.Socket)
	}
}

func TestFileOverridesPreset(t *testing.T) {
	cfg, err := Parse([]byte("preset: portproxy\nremote:\n  port: 9444\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Remote.Port != 9444 {
		t.Errorf("Remote.Port = %d, want file value 9444", cfg.Remote.Port)
	}
	if got := strings.Join(cfg.Remote.Probes, ","); got != "gateway,resolvconf" {
		t.Errorf("Remote.Probes = %s, want preset probes", got)
	}
}

func TestParseUnknownPreset(t *testing.T) {
	if _, err := Parse([]byte("preset: nope\n"), ".yaml"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error %v does not wrap fs.ErrNotExist", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "relay.yaml", "listen:\n  port: 9555\n")
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Port != 9555 {
		t.Errorf("Listen.Port = %d, want 9555", cfg.Listen.Port)
	}
}

func TestLoadWithoutEnvironment(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when PORTRELAY_CONFIG is unset")
	}
	if !strings.Contains(err.Error(), EnvironmentVariable) {
		t.Errorf("error %q does not name the variable", err)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("PORTRELAY_TEST_RUNTIME", "/run/user/1000")

	tests := []struct {
		input string
		want  string
	}{
		{"${PORTRELAY_TEST_RUNTIME}/relay.sock", "/run/user/1000/relay.sock"},
		{"${PORTRELAY_TEST_UNSET:-/tmp}/relay.sock", "/tmp/relay.sock"},
		{"${PORTRELAY_TEST_RUNTIME:-/tmp}/relay.sock", "/run/user/1000/relay.sock"},
		{"${PORTRELAY_TEST_UNSET}/relay.sock", "/relay.sock"},
		{"/plain/path", "/plain/path"},
	}
	for _, test := range tests {
		if got := expandVars(test.input); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestLoadFileExpandsPaths(t *testing.T) {
	t.Setenv("PORTRELAY_TEST_STATE", "/var/lib/relay")
	path := writeConfig(t, "relay.yaml", `
remote:
  resolv_conf: ${PORTRELAY_TEST_STATE}/resolv.conf
control:
  socket: ${PORTRELAY_TEST_STATE}/control.sock
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Remote.ResolvConf != "/var/lib/relay/resolv.conf" {
		t.Errorf("Remote.ResolvConf = %q", cfg.Remote.ResolvConf)
	}
	if cfg.Control.Socket != "/var/lib/relay/control.sock" {
		t.Errorf("Control.Socket = %q", cfg.Control.Socket)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = 70000
	cfg.Remote.Port = 0
	cfg.Remote.Probes = []string{"dhcp"}
	cfg.Remote.FallbackHost = ""
	cfg.Relay.DialTimeout = -time.Second
	cfg.Relay.IdleTimeout = -time.Second
	cfg.Relay.BufferSize = -1
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, fragment := range []string{
		"listen.port",
		"remote.port",
		`unknown probe "dhcp"`,
		"remote.fallback_host",
		"relay.dial_timeout",
		"relay.idle_timeout",
		"relay.buffer_size",
		"logging.level",
		"logging.format",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("validation error missing %q:\n%v", fragment, err)
		}
	}
}

func TestListenPortZeroIsValid(t *testing.T) {
	cfg := Default()
	cfg.Listen.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want ephemeral listen port accepted", err)
	}
}

func TestResolversStaticHost(t *testing.T) {
	cfg := Default()
	cfg.Remote.Host = "10.0.0.5"
	cfg.Remote.Port = 9223

	resolvers := cfg.Resolvers()
	if len(resolvers) != 1 {
		t.Fatalf("got %d resolvers, want 1", len(resolvers))
	}
	if resolvers[0].Name != "static" {
		t.Errorf("Name = %q, want static", resolvers[0].Name)
	}
	got, err := resolvers[0].Resolver.Resolve(t.Context())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := (endpoint.Endpoint{Host: "10.0.0.5", Port: 9223}); got != want {
		t.Errorf("Resolve() = %v, want %v", got, want)
	}
}

func TestResolversProbeOrder(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyPreset("portproxy"); err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	cfg.Remote.RouteTable = "/tmp/route"
	cfg.Remote.ResolvConf = "/tmp/resolv.conf"

	resolvers := cfg.Resolvers()
	if len(resolvers) != 2 {
		t.Fatalf("got %d resolvers, want 2", len(resolvers))
	}
	gateway, ok := resolvers[0].Resolver.(endpoint.Gateway)
	if !ok {
		t.Fatalf("first resolver is %T, want endpoint.Gateway", resolvers[0].Resolver)
	}
	if gateway.Path != "/tmp/route" || gateway.Port != 9223 {
		t.Errorf("gateway = %+v", gateway)
	}
	resolvConf, ok := resolvers[1].Resolver.(endpoint.ResolvConf)
	if !ok {
		t.Fatalf("second resolver is %T, want endpoint.ResolvConf", resolvers[1].Resolver)
	}
	if resolvConf.Path != "/tmp/resolv.conf" || resolvConf.Port != 9223 {
		t.Errorf("resolvconf = %+v", resolvConf)
	}
}

func TestEndpoints(t *testing.T) {
	cfg := Default()
	cfg.Listen.Host = "127.0.0.1"
	cfg.Remote.Port = 9223

	if got, want := cfg.ListenEndpoint(), (endpoint.Endpoint{Host: "127.0.0.1", Port: 9222}); got != want {
		t.Errorf("ListenEndpoint() = %v, want %v", got, want)
	}
	if got, want := cfg.FallbackEndpoint(), (endpoint.Endpoint{Host: "127.0.0.1", Port: 9223}); got != want {
		t.Errorf("FallbackEndpoint() = %v, want %v", got, want)
	}
}
