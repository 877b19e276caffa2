package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ListenerEntry defines a single SOCKS listener and the options sessions
// accepted on it run with.
type ListenerEntry struct {
	Addr      string `yaml:"addr"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	BindAddr  string `yaml:"bind_addr"`
	NextProxy string `yaml:"next_proxy"`
}

// Config is the top-level YAML configuration: one or more independent
// listeners, each with its own auth policy, outbound bind address, and
// optional upstream chain.
type Config struct {
	Listeners []ListenerEntry `yaml:"listeners"`
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Listeners) == 0 {
		return nil, fmt.Errorf("config: at least one listener entry is required")
	}

	seenAddrs := make(map[string]struct{}, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		if l.Addr == "" {
			return nil, fmt.Errorf("config: listeners[%d]: 'addr' is required (e.g. 0.0.0.0:1080)", i)
		}
		if _, ok := seenAddrs[l.Addr]; ok {
			return nil, fmt.Errorf("config: listeners[%d]: duplicate addr %q", i, l.Addr)
		}
		seenAddrs[l.Addr] = struct{}{}

		if l.Password != "" && l.Username == "" {
			return nil, fmt.Errorf("config: listeners[%d]: 'password' set without 'username'", i)
		}
	}

	return &cfg, nil
}
