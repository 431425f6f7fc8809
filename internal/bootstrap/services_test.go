package bootstrap

import (
	"io"
	"log/slog"
	"testing"

	"github.com/sescincjoi/central-sci/config"
)

func TestIsRedisURL(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"redis://localhost:6379", true},
		{"rediss://cache.example.com:6380", true},
		{"localhost:6379", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isRedisURL(tt.value); got != tt.want {
			t.Fatalf("isRedisURL(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestBuildObservabilityDisabledMetrics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	obs := buildObservability(logger, config.ObservabilityConfig{
		Metrics: config.ObservabilityMetricsConfig{Enabled: false},
	})

	if obs.MetricsSink != nil {
		t.Fatalf("MetricsSink = %v, want nil", obs.MetricsSink)
	}
}

func TestBuildOfflineServiceReturnsNilWithoutRedis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := BuildOfflineService(config.OfflineConfig{
		Version:     "central-sci-v1",
		UpstreamURL: "http://localhost:8081",
	}, nil, nil, logger)

	if svc != nil {
		t.Fatalf("BuildOfflineService() = %v, want nil", svc)
	}
}
