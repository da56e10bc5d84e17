// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration shared by the gateway and node binaries.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Session   SessionConfig   `yaml:"session"`
	Node      NodeConfig      `yaml:"node"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Transport TransportConfig `yaml:"transport"`
	Storage   StorageConfig   `yaml:"storage"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Health    HealthConfig    `yaml:"health"`
	Otel      OtelConfig      `yaml:"otel"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// SessionConfig holds delivery and receive settings common to both roles.
type SessionConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	RetryDelay   time.Duration `yaml:"retry_delay"`
	BufferSize   int           `yaml:"buffer_size"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// NodeConfig holds node settings.
type NodeConfig struct {
	ID       uint8  `yaml:"id"`
	ClientID string `yaml:"client_id"`
	// KeepAlive is the CONNECT duration.
	KeepAlive time.Duration `yaml:"keep_alive"`
	// LoopBlock is how long the node serves inbound traffic between CONNECT
	// attempts.
	LoopBlock       time.Duration `yaml:"loop_block"`
	PublishTopicID  uint16        `yaml:"publish_topic_id"`  // 0 disables periodic PUBLISH
	PublishInterval time.Duration `yaml:"publish_interval"`
	PublishPayload  string        `yaml:"publish_payload"`
}

// GatewayConfig holds gateway settings.
type GatewayConfig struct {
	GatewayID         byte          `yaml:"gw_id"`
	AdvertiseInterval time.Duration `yaml:"advertise_interval"`
	// AdvertiseDuration is announced in ADVERTISE, in seconds.
	AdvertiseDuration uint16 `yaml:"advertise_duration"`
}

// TransportConfig selects and configures the mesh.
type TransportConfig struct {
	Type string    `yaml:"type"` // udp, memory
	UDP  UDPConfig `yaml:"udp"`
}

// UDPConfig holds UDP mesh settings.
type UDPConfig struct {
	GatewayAddr string        `yaml:"gateway_addr"` // node: where the gateway listens
	BindAddr    string        `yaml:"bind_addr"`
	JoinTimeout time.Duration `yaml:"join_timeout"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
	AckTimeout  time.Duration `yaml:"ack_timeout"` // wait for the peer's link-level ack
}

// StorageConfig holds address table storage settings.
type StorageConfig struct {
	Type      string `yaml:"type"` // memory, badger
	BadgerDir string `yaml:"badger_dir"`
}

// BridgeConfig holds the MQTT broker bridge settings.
type BridgeConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Broker         string               `yaml:"broker"`
	ClientID       string               `yaml:"client_id"` // empty: random
	Username       string               `yaml:"username"`
	Password       string               `yaml:"password"`
	TopicPrefix    string               `yaml:"topic_prefix"`
	QoS            byte                 `yaml:"qos"`
	PublishTimeout time.Duration        `yaml:"publish_timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker settings for broker publishes.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

// RateLimitConfig holds per-peer inbound rate limiting settings.
type RateLimitConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Rate            float64       `yaml:"rate"` // messages per second
	Burst           int           `yaml:"burst"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// HealthConfig holds the gateway health endpoint settings.
type HealthConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// OtelConfig holds OpenTelemetry settings.
type OtelConfig struct {
	MetricsEnabled  bool    `yaml:"metrics_enabled"`
	TracesEnabled   bool    `yaml:"traces_enabled"`
	Endpoint        string  `yaml:"endpoint"` // OTLP gRPC collector
	ServiceName     string  `yaml:"service_name"`
	ServiceVersion  string  `yaml:"service_version"`
	TraceSampleRate float64 `yaml:"trace_sample_rate"` // 0.0 to 1.0
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Session: SessionConfig{
			MaxRetries:   10,
			RetryDelay:   time.Second,
			BufferSize:   144,
			PollInterval: 5 * time.Millisecond,
		},
		Node: NodeConfig{
			ID:              1,
			ClientID:        "hello node!",
			KeepAlive:       60 * time.Second,
			LoopBlock:       10 * time.Second,
			PublishInterval: 30 * time.Second,
		},
		Gateway: GatewayConfig{
			GatewayID:         0xfe,
			AdvertiseInterval: 5 * time.Second,
			AdvertiseDuration: 5,
		},
		Transport: TransportConfig{
			Type: "udp",
			UDP: UDPConfig{
				GatewayAddr: "127.0.0.1:1884",
				BindAddr:    ":1884",
				JoinTimeout: 2 * time.Second,
				PingTimeout: 500 * time.Millisecond,
				AckTimeout:  250 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			Type:      "memory",
			BadgerDir: "/tmp/mqttsn/data",
		},
		Bridge: BridgeConfig{
			Enabled:        false,
			Broker:         "tcp://localhost:1883",
			TopicPrefix:    "mqttsn",
			QoS:            1,
			PublishTimeout: 5 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     60 * time.Second,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:         false,
			Rate:            10,
			Burst:           20,
			CleanupInterval: 5 * time.Minute,
		},
		Health: HealthConfig{
			Enabled:         true,
			Addr:            ":8081",
			ShutdownTimeout: 5 * time.Second,
		},
		Otel: OtelConfig{
			MetricsEnabled:  false,
			TracesEnabled:   false,
			Endpoint:        "localhost:4317",
			ServiceName:     "mqttsn-gateway",
			ServiceVersion:  "1.0.0",
			TraceSampleRate: 0.1,
		},
	}
}

// Load reads configuration from a YAML file. An empty filename or a
// missing file yields the defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("log.format must be one of: text, json")
	}

	if c.Session.MaxRetries < 1 {
		return fmt.Errorf("session.max_retries must be at least 1")
	}
	if c.Session.RetryDelay < 0 {
		return fmt.Errorf("session.retry_delay cannot be negative")
	}
	if c.Session.BufferSize < 2 || c.Session.BufferSize > 255 {
		return fmt.Errorf("session.buffer_size must be between 2 and 255")
	}

	if c.Node.ID < 1 || c.Node.ID > 253 {
		return fmt.Errorf("node.id must be between 1 and 253")
	}
	if len(c.Node.ClientID) > 23 {
		return fmt.Errorf("node.client_id cannot exceed 23 characters")
	}
	if c.Node.KeepAlive < 0 || c.Node.KeepAlive > 0xFFFF*time.Second {
		return fmt.Errorf("node.keep_alive must fit in 16 bits of seconds")
	}
	if c.Node.LoopBlock <= 0 {
		return fmt.Errorf("node.loop_block must be positive")
	}
	if c.Node.PublishTopicID != 0 && c.Node.PublishInterval <= 0 {
		return fmt.Errorf("node.publish_interval must be positive when publish_topic_id is set")
	}

	if c.Gateway.AdvertiseInterval <= 0 {
		return fmt.Errorf("gateway.advertise_interval must be positive")
	}

	validTransports := map[string]bool{"udp": true, "memory": true}
	if !validTransports[c.Transport.Type] {
		return fmt.Errorf("transport.type must be one of: udp, memory")
	}
	if c.Transport.Type == "udp" {
		if c.Transport.UDP.BindAddr == "" {
			return fmt.Errorf("transport.udp.bind_addr cannot be empty")
		}
		if c.Transport.UDP.JoinTimeout <= 0 {
			return fmt.Errorf("transport.udp.join_timeout must be positive")
		}
		if c.Transport.UDP.AckTimeout <= 0 {
			return fmt.Errorf("transport.udp.ack_timeout must be positive")
		}
	}

	validStorage := map[string]bool{"memory": true, "badger": true}
	if !validStorage[c.Storage.Type] {
		return fmt.Errorf("storage.type must be one of: memory, badger")
	}
	if c.Storage.Type == "badger" && c.Storage.BadgerDir == "" {
		return fmt.Errorf("storage.badger_dir required when type is badger")
	}

	if c.Bridge.Enabled {
		if c.Bridge.Broker == "" {
			return fmt.Errorf("bridge.broker required when bridge is enabled")
		}
		if c.Bridge.QoS > 2 {
			return fmt.Errorf("bridge.qos must be 0, 1 or 2")
		}
		if c.Bridge.PublishTimeout <= 0 {
			return fmt.Errorf("bridge.publish_timeout must be positive")
		}
		if c.Bridge.CircuitBreaker.FailureThreshold < 1 {
			return fmt.Errorf("bridge.circuit_breaker.failure_threshold must be at least 1")
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Rate <= 0 {
			return fmt.Errorf("ratelimit.rate must be positive")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("ratelimit.burst must be at least 1")
		}
	}

	if c.Health.Enabled && c.Health.Addr == "" {
		return fmt.Errorf("health.addr required when health is enabled")
	}

	if c.Otel.MetricsEnabled || c.Otel.TracesEnabled {
		if c.Otel.ServiceName == "" {
			return fmt.Errorf("otel.service_name cannot be empty when telemetry is enabled")
		}
		if c.Otel.TraceSampleRate < 0.0 || c.Otel.TraceSampleRate > 1.0 {
			return fmt.Errorf("otel.trace_sample_rate must be between 0.0 and 1.0")
		}
	}

	return nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
