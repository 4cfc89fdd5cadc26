package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the sync core. Durations are
// millisecond integers to keep file and env parsing uniform.
type Config struct {
	// DefaultTenant is used when callers omit a tenant id.
	DefaultTenant string `json:"defaultTenant" yaml:"defaultTenant"`
	// ConsumerApplications lists the downstream applications that receive
	// sync events and write acknowledgments (e.g. "crm").
	ConsumerApplications []string `json:"consumerApplications" yaml:"consumerApplications"`

	Tracking TrackingConfig `json:"tracking" yaml:"tracking"`
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
	Worker   WorkerConfig   `json:"worker" yaml:"worker"`
}

// TrackingConfig controls the event tracking store lifecycle.
type TrackingConfig struct {
	// RetryBudget is the number of ERROR acks tolerated before a record
	// turns FAILED.
	RetryBudget int `json:"retryBudget" yaml:"retryBudget"`
	// AckExpiryMs is how long a PUBLISHED record may wait for an ack
	// before the sweeper marks it EXPIRED.
	AckExpiryMs int64 `json:"ackExpiryMs" yaml:"ackExpiryMs"`
	// HealthWindowMs is the rolling window for sync health metrics.
	HealthWindowMs int64 `json:"healthWindowMs" yaml:"healthWindowMs"`
	// SweepIntervalMs paces the expiry sweeper.
	SweepIntervalMs int64 `json:"sweepIntervalMs" yaml:"sweepIntervalMs"`
}

// WorkflowConfig controls orchestration retry behavior.
type WorkflowConfig struct {
	// MaxAttempts is the default per-activity attempt ceiling.
	MaxAttempts int `json:"maxAttempts" yaml:"maxAttempts"`
	// BackoffBaseMs is the first retry delay; doubled per attempt up to
	// BackoffCapMs.
	BackoffBaseMs int64 `json:"backoffBaseMs" yaml:"backoffBaseMs"`
	BackoffCapMs  int64 `json:"backoffCapMs" yaml:"backoffCapMs"`
	// ActivityTimeoutMs bounds a single activity invocation.
	ActivityTimeoutMs int64 `json:"activityTimeoutMs" yaml:"activityTimeoutMs"`
}

// WorkerConfig controls the worker pool and its task queue.
type WorkerConfig struct {
	// Concurrency is the number of worker slots.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
	// QueueMaxAvailable bounds pending tasks; enqueue blocks when reached.
	QueueMaxAvailable int `json:"queueMaxAvailable" yaml:"queueMaxAvailable"`
	// LeaseMs is how long a dequeued task stays leased before the reclaim
	// sweeper returns it to availability.
	LeaseMs int64 `json:"leaseMs" yaml:"leaseMs"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DefaultTenant:        "default",
		ConsumerApplications: []string{"crm"},
		Tracking: TrackingConfig{
			RetryBudget:     3,
			AckExpiryMs:     15 * 60_000,
			HealthWindowMs:  60 * 60_000,
			SweepIntervalMs: 30_000,
		},
		Workflow: WorkflowConfig{
			MaxAttempts:       3,
			BackoffBaseMs:     200,
			BackoffCapMs:      30_000,
			ActivityTimeoutMs: 30_000,
		},
		Worker: WorkerConfig{
			Concurrency:       4,
			QueueMaxAvailable: 1024,
			LeaseMs:           30_000,
		},
	}
}

// Load reads configuration from a JSON or YAML file by extension. An empty
// path returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
