// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Session defaults
	if cfg.Session.MaxRetries != 10 {
		t.Errorf("expected max retries 10, got %d", cfg.Session.MaxRetries)
	}
	if cfg.Session.RetryDelay != time.Second {
		t.Errorf("expected retry delay 1s, got %v", cfg.Session.RetryDelay)
	}
	if cfg.Session.BufferSize != 144 {
		t.Errorf("expected buffer size 144, got %d", cfg.Session.BufferSize)
	}

	// Role defaults
	if cfg.Gateway.GatewayID != 0xfe {
		t.Errorf("expected gateway id 0xfe, got 0x%02x", cfg.Gateway.GatewayID)
	}
	if cfg.Node.LoopBlock != 10*time.Second {
		t.Errorf("expected node loop block 10s, got %v", cfg.Node.LoopBlock)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Log.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "default config is valid",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Log.Level = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "zero retries",
			modify:  func(c *Config) { c.Session.MaxRetries = 0 },
			wantErr: true,
		},
		{
			name:    "buffer exceeds one-octet length",
			modify:  func(c *Config) { c.Session.BufferSize = 256 },
			wantErr: true,
		},
		{
			name:    "reserved node id 0",
			modify:  func(c *Config) { c.Node.ID = 0 },
			wantErr: true,
		},
		{
			name:    "reserved node id 254",
			modify:  func(c *Config) { c.Node.ID = 254 },
			wantErr: true,
		},
		{
			name:    "client id too long",
			modify:  func(c *Config) { c.Node.ClientID = "a-client-id-longer-than-23" },
			wantErr: true,
		},
		{
			name: "publish topic without interval",
			modify: func(c *Config) {
				c.Node.PublishTopicID = 1
				c.Node.PublishInterval = 0
			},
			wantErr: true,
		},
		{
			name:    "unknown transport",
			modify:  func(c *Config) { c.Transport.Type = "serial" },
			wantErr: true,
		},
		{
			name:    "udp without ack timeout",
			modify:  func(c *Config) { c.Transport.UDP.AckTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "memory transport needs no udp settings",
			modify:  func(c *Config) { c.Transport.Type = "memory"; c.Transport.UDP = UDPConfig{} },
			wantErr: false,
		},
		{
			name:    "badger without directory",
			modify:  func(c *Config) { c.Storage.Type = "badger"; c.Storage.BadgerDir = "" },
			wantErr: true,
		},
		{
			name:    "bridge without broker",
			modify:  func(c *Config) { c.Bridge.Enabled = true; c.Bridge.Broker = "" },
			wantErr: true,
		},
		{
			name:    "bridge qos out of range",
			modify:  func(c *Config) { c.Bridge.Enabled = true; c.Bridge.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "rate limit without rate",
			modify:  func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.Rate = 0 },
			wantErr: true,
		},
		{
			name:    "sample rate out of range",
			modify:  func(c *Config) { c.Otel.TracesEnabled = true; c.Otel.TraceSampleRate = 1.5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadNonExistent(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatalf("Load() should return default config and no error when file doesn't exist, got error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() should return a default config, got nil")
	}

	if cfg.Transport.UDP.BindAddr != ":1884" {
		t.Errorf("expected default config, got bind addr %s", cfg.Transport.UDP.BindAddr)
	}
}

func TestLoadYAML(t *testing.T) {
	tmpfile := t.TempDir() + "/config.yaml"
	data := []byte(`
log:
  level: debug
session:
  retry_delay: 250ms
node:
  id: 42
  client_id: sensor-42
gateway:
  advertise_interval: 2s
`)
	if err := os.WriteFile(tmpfile, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Session.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected retry delay 250ms, got %v", cfg.Session.RetryDelay)
	}
	if cfg.Node.ID != 42 || cfg.Node.ClientID != "sensor-42" {
		t.Errorf("unexpected node config %+v", cfg.Node)
	}
	if cfg.Gateway.AdvertiseInterval != 2*time.Second {
		t.Errorf("expected advertise interval 2s, got %v", cfg.Gateway.AdvertiseInterval)
	}
	// Unset fields keep their defaults.
	if cfg.Session.MaxRetries != 10 {
		t.Errorf("expected default max retries, got %d", cfg.Session.MaxRetries)
	}
}

func TestLoadInvalid(t *testing.T) {
	tmpfile := t.TempDir() + "/config.yaml"
	if err := os.WriteFile(tmpfile, []byte("node:\n  id: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmpfile); err == nil {
		t.Error("Load() should reject node id 0")
	}
}

func TestSaveLoad(t *testing.T) {
	tmpfile := t.TempDir() + "/config.yaml"

	cfg := Default()
	cfg.Transport.UDP.BindAddr = ":2884"
	cfg.Session.RetryDelay = 30 * time.Second
	cfg.Log.Level = "debug"

	if err := cfg.Save(tmpfile); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tmpfile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.Transport.UDP.BindAddr != ":2884" {
		t.Errorf("expected bind addr :2884, got %s", loaded.Transport.UDP.BindAddr)
	}
	if loaded.Session.RetryDelay != 30*time.Second {
		t.Errorf("expected retry delay 30s, got %v", loaded.Session.RetryDelay)
	}
	if loaded.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", loaded.Log.Level)
	}
}
