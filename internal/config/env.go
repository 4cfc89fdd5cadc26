package config

import (
	"os"
	"strconv"
	"strings"
)

// FromEnv overlays WRAPSYNC_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("WRAPSYNC_DEFAULT_TENANT"); v != "" {
		cfg.DefaultTenant = v
	}
	if v := os.Getenv("WRAPSYNC_CONSUMER_APPS"); v != "" {
		cfg.ConsumerApplications = nil
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.ConsumerApplications = append(cfg.ConsumerApplications, p)
			}
		}
	}
	envInt("WRAPSYNC_TRACKING_RETRY_BUDGET", &cfg.Tracking.RetryBudget)
	envInt64("WRAPSYNC_TRACKING_ACK_EXPIRY_MS", &cfg.Tracking.AckExpiryMs)
	envInt64("WRAPSYNC_TRACKING_HEALTH_WINDOW_MS", &cfg.Tracking.HealthWindowMs)
	envInt64("WRAPSYNC_TRACKING_SWEEP_INTERVAL_MS", &cfg.Tracking.SweepIntervalMs)
	envInt("WRAPSYNC_WORKFLOW_MAX_ATTEMPTS", &cfg.Workflow.MaxAttempts)
	envInt64("WRAPSYNC_WORKFLOW_BACKOFF_BASE_MS", &cfg.Workflow.BackoffBaseMs)
	envInt64("WRAPSYNC_WORKFLOW_BACKOFF_CAP_MS", &cfg.Workflow.BackoffCapMs)
	envInt64("WRAPSYNC_WORKFLOW_ACTIVITY_TIMEOUT_MS", &cfg.Workflow.ActivityTimeoutMs)
	envInt("WRAPSYNC_WORKER_CONCURRENCY", &cfg.Worker.Concurrency)
	envInt("WRAPSYNC_WORKER_QUEUE_MAX_AVAILABLE", &cfg.Worker.QueueMaxAvailable)
	envInt64("WRAPSYNC_WORKER_LEASE_MS", &cfg.Worker.LeaseMs)
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
