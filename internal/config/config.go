// Package config loads server configuration the way the teacher's
// server/conf package does (an ini.v1 file with section/key lookups
// and time.Duration parsing), extended to every knob spec.md §6 lists.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds every tunable from spec.md §6's configuration table.
type Config struct {
	Port        int
	BindAddress string
	MaxClients  int

	ClientIdleTimeout    time.Duration
	HealthCheckInterval  time.Duration
	Backlog              int
	TCPNoDelay           bool
	TCPKeepAlive         bool
	TCPKeepAliveTime     time.Duration
	TCPKeepAliveInterval time.Duration
	TCPKeepAliveRetry    int
	ReceiveBufferSize    int
	SendBufferSize       int
	ReuseAddress         bool
	GracefulShutdown     time.Duration
	ServerVersion        string
}

// Default returns the table of defaults from spec.md §6.
func Default() *Config {
	return &Config{
		Port:                 3306,
		BindAddress:          "0.0.0.0",
		MaxClients:           10000,
		ClientIdleTimeout:    5 * time.Minute,
		HealthCheckInterval:  30 * time.Second,
		Backlog:              128,
		TCPNoDelay:           true,
		TCPKeepAlive:         true,
		TCPKeepAliveTime:     60 * time.Second,
		TCPKeepAliveInterval: 10 * time.Second,
		TCPKeepAliveRetry:    3,
		ReceiveBufferSize:    64 * 1024,
		SendBufferSize:       64 * 1024,
		ReuseAddress:         true,
		GracefulShutdown:     30 * time.Second,
		ServerVersion:        "8.0.0-cyscaledb",
	}
}

// Load reads an ini file following the [server] section layout used by
// server/conf/config.go, overriding only the keys present.
func Load(path string) (*Config, error) {
	cfg := Default()
	raw, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load(%s): %w", path, err)
	}
	sec := raw.Section("server")

	if k, err := sec.GetKey("port"); err == nil {
		cfg.Port = k.MustInt(cfg.Port)
	}
	if k, err := sec.GetKey("bind_address"); err == nil {
		cfg.BindAddress = k.MustString(cfg.BindAddress)
	}
	if k, err := sec.GetKey("max_clients"); err == nil {
		cfg.MaxClients = k.MustInt(cfg.MaxClients)
	}
	if k, err := sec.GetKey("client_idle_timeout"); err == nil {
		cfg.ClientIdleTimeout = mustDuration(k.MustString(cfg.ClientIdleTimeout.String()), cfg.ClientIdleTimeout)
	}
	if k, err := sec.GetKey("health_check_interval"); err == nil {
		cfg.HealthCheckInterval = mustDuration(k.MustString(cfg.HealthCheckInterval.String()), cfg.HealthCheckInterval)
	}
	if k, err := sec.GetKey("backlog"); err == nil {
		cfg.Backlog = k.MustInt(cfg.Backlog)
	}
	if k, err := sec.GetKey("tcp_no_delay"); err == nil {
		cfg.TCPNoDelay = k.MustBool(cfg.TCPNoDelay)
	}
	if k, err := sec.GetKey("tcp_keep_alive"); err == nil {
		cfg.TCPKeepAlive = k.MustBool(cfg.TCPKeepAlive)
	}
	if k, err := sec.GetKey("receive_buffer_size"); err == nil {
		cfg.ReceiveBufferSize = k.MustInt(cfg.ReceiveBufferSize)
	}
	if k, err := sec.GetKey("send_buffer_size"); err == nil {
		cfg.SendBufferSize = k.MustInt(cfg.SendBufferSize)
	}
	if k, err := sec.GetKey("reuse_address"); err == nil {
		cfg.ReuseAddress = k.MustBool(cfg.ReuseAddress)
	}
	if k, err := sec.GetKey("graceful_shutdown_timeout"); err == nil {
		cfg.GracefulShutdown = mustDuration(k.MustString(cfg.GracefulShutdown.String()), cfg.GracefulShutdown)
	}
	if k, err := sec.GetKey("server_version"); err == nil {
		cfg.ServerVersion = k.MustString(cfg.ServerVersion)
	}
	return cfg, nil
}

func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
