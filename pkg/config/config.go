// Package config provides configuration management for the server and
// client components.
//
// Configuration sources, highest precedence first:
//  1. Environment variables (applied after flags are parsed, so a set
//     variable overrides the matching flag)
//  2. Command-line flags (server only)
//  3. Default values
//
// Server configuration:
//   - Host/port to bind
//   - Maximum concurrent connections (enforced by the event loop as a
//     resource-exhaustion guard, not a timeout)
//   - Log level
//
// Client configuration:
//   - Server address, connection/read/write timeouts, retry attempts
//
// Example server usage:
//
//	cfg := config.LoadServerConfig()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//	srv, err := server.New(cfg.Host, cfg.Port)
//
// Environment variables are prefixed with "REACTORKV_" and use uppercase
// names. For example, the server port can be set with REACTORKV_PORT=1234.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Default server configuration constants.
const (
	DefaultServerPort     = 1234
	DefaultHost           = "0.0.0.0"
	DefaultMaxConnections = 1000
)

// Default client configuration constants.
const (
	DefaultConnTimeoutSecs  = 5
	DefaultReadTimeoutSecs  = 30
	DefaultWriteTimeoutSecs = 10
	DefaultRetryAttempts    = 3
)

// ServerConfig holds the configuration for one server instance.
//
// Example:
//
//	cfg := &ServerConfig{Host: "0.0.0.0", Port: 1234, MaxConns: 1000}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
type ServerConfig struct {
	Host     string // address to bind to (default: "0.0.0.0")
	Port     int    // TCP port to listen on (default: 1234)
	MaxConns int    // maximum concurrently open connections (default: 1000)
	LogLevel string // debug, info, warn, error (default: "info")
}

// ClientConfig holds the configuration for a pkg/client.Client.
type ClientConfig struct {
	Address       string // server address, "host:port" (default: "localhost:1234")
	ConnTimeout   int    // connection timeout in seconds (default: 5)
	ReadTimeout   int    // read timeout in seconds (default: 30)
	WriteTimeout  int    // write timeout in seconds (default: 10)
	RetryAttempts int    // number of retry attempts (default: 3)
}

// LoadServerConfig loads a ServerConfig from command-line flags and
// environment variables, falling back to defaults.
//
// Flags: -host, -port, -max-conns, -log-level
//
// Environment: REACTORKV_HOST, REACTORKV_PORT, REACTORKV_MAX_CONNS
func LoadServerConfig() *ServerConfig {
	cfg := &ServerConfig{
		Host:     DefaultHost,
		Port:     DefaultServerPort,
		MaxConns: DefaultMaxConnections,
		LogLevel: "info",
	}

	flag.StringVar(&cfg.Host, "host", cfg.Host, "address to bind to")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "TCP port to listen on")
	flag.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns, "maximum concurrent connections")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Parse()

	if host := os.Getenv("REACTORKV_HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("REACTORKV_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if maxConns := os.Getenv("REACTORKV_MAX_CONNS"); maxConns != "" {
		if mc, err := strconv.Atoi(maxConns); err == nil {
			cfg.MaxConns = mc
		}
	}

	return cfg
}

// LoadClientConfig loads a ClientConfig from environment variables,
// falling back to defaults.
//
// Environment: REACTORKV_ADDRESS, REACTORKV_CONN_TIMEOUT,
// REACTORKV_READ_TIMEOUT, REACTORKV_WRITE_TIMEOUT, REACTORKV_RETRY_ATTEMPTS
func LoadClientConfig() *ClientConfig {
	cfg := &ClientConfig{
		Address:       "localhost:1234",
		ConnTimeout:   DefaultConnTimeoutSecs,
		ReadTimeout:   DefaultReadTimeoutSecs,
		WriteTimeout:  DefaultWriteTimeoutSecs,
		RetryAttempts: DefaultRetryAttempts,
	}

	if address := os.Getenv("REACTORKV_ADDRESS"); address != "" {
		cfg.Address = address
	}
	if connTimeout := os.Getenv("REACTORKV_CONN_TIMEOUT"); connTimeout != "" {
		if ct, err := strconv.Atoi(connTimeout); err == nil {
			cfg.ConnTimeout = ct
		}
	}
	if readTimeout := os.Getenv("REACTORKV_READ_TIMEOUT"); readTimeout != "" {
		if rt, err := strconv.Atoi(readTimeout); err == nil {
			cfg.ReadTimeout = rt
		}
	}
	if writeTimeout := os.Getenv("REACTORKV_WRITE_TIMEOUT"); writeTimeout != "" {
		if wt, err := strconv.Atoi(writeTimeout); err == nil {
			cfg.WriteTimeout = wt
		}
	}
	if retryAttempts := os.Getenv("REACTORKV_RETRY_ATTEMPTS"); retryAttempts != "" {
		if ra, err := strconv.Atoi(retryAttempts); err == nil {
			cfg.RetryAttempts = ra
		}
	}

	return cfg
}

// Validate checks that the ServerConfig's values are usable.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.MaxConns < 1 {
		return fmt.Errorf("max connections must be positive: %d", c.MaxConns)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Validate checks that the ClientConfig's values are usable.
func (c *ClientConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address must not be empty")
	}
	if c.ConnTimeout < 1 {
		return fmt.Errorf("connection timeout must be positive: %d", c.ConnTimeout)
	}
	if c.ReadTimeout < 1 {
		return fmt.Errorf("read timeout must be positive: %d", c.ReadTimeout)
	}
	if c.WriteTimeout < 1 {
		return fmt.Errorf("write timeout must be positive: %d", c.WriteTimeout)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts must be non-negative: %d", c.RetryAttempts)
	}
	return nil
}
