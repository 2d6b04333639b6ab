package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.QueueDepth != 1024 {
		t.Fatalf("default queue depth")
	}
	if cfg.LockTimeoutMs != 30000 {
		t.Fatalf("default lock timeout")
	}
	if !cfg.AllowAutoCreateNamespaces {
		t.Fatalf("default allow auto create should be true")
	}
	if cfg.DefaultNamespaceName != "default" {
		t.Fatalf("default ns name")
	}
	if len(cfg.NTPServers) != 1 || cfg.NTPServers[0] != "localhost" {
		t.Fatalf("default ntp servers: %v", cfg.NTPServers)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chronicle.json")
	data := []byte(`{"workerCount":4,"queueDepth":64,"defaultNamespaceName":"prod"}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.QueueDepth != 64 {
		t.Fatalf("expected queue depth 64, got %d", cfg.QueueDepth)
	}
	if cfg.DefaultNamespaceName != "prod" {
		t.Fatalf("expected prod")
	}
	// Unset fields retain defaults rather than zeroing out.
	if cfg.LockTimeoutMs != 30000 {
		t.Fatalf("expected default lock timeout to survive partial override, got %d", cfg.LockTimeoutMs)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chronicle.yaml")
	data := []byte("workerCount: 8\nqueueDepth: 256\nsubscriberTimeoutMs: 1500\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if cfg.WorkerCount != 8 {
		t.Fatalf("expected worker count 8, got %d", cfg.WorkerCount)
	}
	if cfg.SubscriberTimeoutMs != 1500 {
		t.Fatalf("expected subscriber timeout 1500, got %d", cfg.SubscriberTimeoutMs)
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	os.Setenv("CHRONICLE_WORKER_COUNT", "6")
	os.Setenv("CHRONICLE_QUEUE_DEPTH", "128")
	os.Setenv("CHRONICLE_LOCK_TIMEOUT_MS", "1")
	os.Setenv("CHRONICLE_NTP_SERVERS", "ntp1.local, ntp2.local")
	t.Cleanup(func() {
		os.Unsetenv("CHRONICLE_WORKER_COUNT")
		os.Unsetenv("CHRONICLE_QUEUE_DEPTH")
		os.Unsetenv("CHRONICLE_LOCK_TIMEOUT_MS")
		os.Unsetenv("CHRONICLE_NTP_SERVERS")
	})
	FromEnv(&cfg)
	if cfg.WorkerCount != 6 {
		t.Fatalf("env override worker count: %d", cfg.WorkerCount)
	}
	if cfg.QueueDepth != 128 {
		t.Fatalf("env override queue depth: %d", cfg.QueueDepth)
	}
	if cfg.LockTimeoutMs != 1 {
		t.Fatalf("env override lock timeout: %d", cfg.LockTimeoutMs)
	}
	if len(cfg.NTPServers) != 2 || cfg.NTPServers[0] != "ntp1.local" {
		t.Fatalf("env override ntp servers: %v", cfg.NTPServers)
	}
}
