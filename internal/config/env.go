package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays CHRONICLE_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("CHRONICLE_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WorkerCount = n
		}
	}
	if v := os.Getenv("CHRONICLE_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueDepth = n
		}
	}
	if v := os.Getenv("CHRONICLE_LOCK_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LockTimeoutMs = n
		}
	}
	if v := os.Getenv("CHRONICLE_SUBSCRIBER_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SubscriberTimeoutMs = n
		}
	}
	if v := os.Getenv("CHRONICLE_NTP_SERVERS"); v != "" {
		cfg.NTPServers = splitCSV(v)
	}
	if v := os.Getenv("CHRONICLE_ALLOW_AUTO_CREATE_NAMESPACES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AllowAutoCreateNamespaces = b
		}
	}
	if v := os.Getenv("CHRONICLE_DEFAULT_NAMESPACE_NAME"); v != "" {
		cfg.DefaultNamespaceName = v
	}
	if v := os.Getenv("CHRONICLE_NAMESPACE_DEFAULTS_PAYLOAD_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NamespaceDefaults.PayloadMaxBytes = n
		}
	}
	if v := os.Getenv("CHRONICLE_NAMESPACE_DEFAULTS_HEADERS_MAX_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.NamespaceDefaults.HeadersMaxBytes = n
		}
	}
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
