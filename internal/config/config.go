package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Bind          string
	Port          int
	PublicURL     string // external base URL for join links and QR codes
	CardsFile     string // optional card catalog override; empty means embedded
	ExportEnabled bool
	ExportFile    string
	Verbose       bool
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.ExportEnabled && c.ExportFile == "" {
		return fmt.Errorf("export enabled but no export file configured")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// BaseURL is what join links point at: the configured public URL when the
// server sits behind a proxy, the listen address otherwise.
func (c *Config) BaseURL() string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/")
	}
	host := c.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Port)
}
