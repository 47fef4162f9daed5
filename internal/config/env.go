package config

import (
	"net"
	"strconv"
)

// Environment variables read by ApplyEnv.
const (
	// EnvPort sets the listen port, keeping the current host.
	EnvPort = "PORT"

	// EnvServerAddr sets the full listen address and wins over EnvPort.
	EnvServerAddr = "URLSCAN_ADDR"

	// EnvRedisAddr enables the result cache.
	EnvRedisAddr = "URLSCAN_REDIS_ADDR"

	// EnvModelPath sets the classifier snapshot file.
	EnvModelPath = "URLSCAN_MODEL"
)

// ApplyEnv copies environment overrides onto cfg. getenv is usually
// os.Getenv; tests pass a map lookup.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if port := getenv(EnvPort); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return ErrInvalidPort
		}
		host, _, err := net.SplitHostPort(c.ServerAddr)
		if err != nil {
			host = ""
		}
		c.ServerAddr = net.JoinHostPort(host, port)
	}
	if addr := getenv(EnvServerAddr); addr != "" {
		c.ServerAddr = addr
	}
	if addr := getenv(EnvRedisAddr); addr != "" {
		c.RedisAddr = addr
	}
	if path := getenv(EnvModelPath); path != "" {
		c.ModelPath = path
	}
	return nil
}
