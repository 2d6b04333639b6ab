package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pipeline configuration loaded from file/env.
type Config struct {
	// WorkerCount is the number of command consumer workers. 0 means
	// "use CPU count", resolved by the consumer at construction time.
	WorkerCount int `json:"workerCount" yaml:"workerCount"`
	// QueueDepth bounds the consumer's intake queue.
	QueueDepth int `json:"queueDepth" yaml:"queueDepth"`
	// LockTimeoutMs is the default per-lock acquisition timeout.
	LockTimeoutMs int `json:"lockTimeoutMs" yaml:"lockTimeoutMs"`
	// SubscriberTimeoutMs bounds each entity subscriber callback.
	SubscriberTimeoutMs int `json:"subscriberTimeoutMs" yaml:"subscriberTimeoutMs"`
	// NTPServers is informational only; see internal/clock's NTP stub.
	NTPServers []string `json:"ntpServers" yaml:"ntpServers"`

	// Collection namespacing, carried from a multi-tenant log
	// server and repurposed as the index engine's collection namespace.
	AllowAutoCreateNamespaces bool              `json:"allowAutoCreateNamespaces" yaml:"allowAutoCreateNamespaces"`
	DefaultNamespaceName      string            `json:"defaultNamespaceName" yaml:"defaultNamespaceName"`
	NamespaceDefaults         NamespaceDefaults `json:"namespaceDefaults" yaml:"namespaceDefaults"`
}

// NamespaceDefaults captures per-namespace baseline limits.
type NamespaceDefaults struct {
	PayloadMaxBytes int `json:"payloadMaxBytes" yaml:"payloadMaxBytes"`
	HeadersMaxBytes int `json:"headersMaxBytes" yaml:"headersMaxBytes"`
}

// LockTimeout returns LockTimeoutMs as a time.Duration.
func (c Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// SubscriberTimeout returns SubscriberTimeoutMs as a time.Duration.
func (c Config) SubscriberTimeout() time.Duration {
	return time.Duration(c.SubscriberTimeoutMs) * time.Millisecond
}

// Default returns the repository's built-in configuration defaults.
func Default() Config {
	return Config{
		WorkerCount:               0,
		QueueDepth:                1024,
		LockTimeoutMs:             30000,
		SubscriberTimeoutMs:       5000,
		NTPServers:                []string{"localhost"},
		AllowAutoCreateNamespaces: true,
		DefaultNamespaceName:      "default",
		NamespaceDefaults: NamespaceDefaults{
			PayloadMaxBytes: 1 << 20,
			HeadersMaxBytes: 16 << 10,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path
// is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
