package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv unsets every ADVISOR_ variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Recommend.TopN != 3 {
		t.Fatalf("expected default TopN=3, got %d", cfg.Recommend.TopN)
	}
	if cfg.Topic.OutlierThreshold != 0.35 {
		t.Fatalf("expected default threshold 0.35, got %v", cfg.Topic.OutlierThreshold)
	}
	if cfg.Text.ArabicStemming || !cfg.Text.EnglishStemming {
		t.Fatalf("expected Arabic stemming off and English on, got %+v", cfg.Text)
	}
	if cfg.Text.DetectPrefix != 200 {
		t.Fatalf("expected detect prefix 200, got %d", cfg.Text.DetectPrefix)
	}
	if cfg.History.Source != "" {
		t.Fatalf("expected no history source by default, got %q", cfg.History.Source)
	}
	if cfg.Log.Level != "info" || cfg.Output.Format != "json" {
		t.Fatalf("unexpected log/output defaults: %+v %+v", cfg.Log, cfg.Output)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ADVISOR_MODELS_TOPIC_EMBEDDINGS", "/m/topics.safetensors")
	t.Setenv("ADVISOR_RECOMMEND_TOP_N", "5")
	t.Setenv("ADVISOR_TEXT_ARABIC_STEMMING", "true")
	t.Setenv("ADVISOR_HISTORY_SOURCE", "sqlite")
	t.Setenv("ADVISOR_HISTORY_PATH", "/data/problems.db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Models.TopicEmbeddings != "/m/topics.safetensors" {
		t.Fatalf("TopicEmbeddings = %q", cfg.Models.TopicEmbeddings)
	}
	if cfg.Recommend.TopN != 5 {
		t.Fatalf("TopN = %d, want 5", cfg.Recommend.TopN)
	}
	if !cfg.Text.ArabicStemming {
		t.Fatal("expected Arabic stemming enabled from env")
	}
	if cfg.History.Source != "sqlite" || cfg.History.Path != "/data/problems.db" {
		t.Fatalf("History = %+v", cfg.History)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	yaml := `
history:
  source: csv
  path: data/final_results.csv
topic:
  outlier_threshold: 0.5
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ADVISOR_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.History.Source != "csv" || cfg.History.Path != "data/final_results.csv" {
		t.Fatalf("History = %+v", cfg.History)
	}
	if cfg.Topic.OutlierThreshold != 0.5 {
		t.Fatalf("threshold = %v, want 0.5 from file", cfg.Topic.OutlierThreshold)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("log level = %q, want env to win over file", cfg.Log.Level)
	}
	if cfg.Recommend.TopN != 3 {
		t.Fatalf("TopN = %d, want default to survive", cfg.Recommend.TopN)
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "advisor.yaml")
	if err := os.WriteFile(path, []byte("recommend:\n  top_n: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Recommend.TopN != 7 {
		t.Fatalf("TopN = %d, want 7", cfg.Recommend.TopN)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown source", map[string]string{"ADVISOR_HISTORY_SOURCE": "parquet", "ADVISOR_HISTORY_PATH": "x"}},
		{"source without path", map[string]string{"ADVISOR_HISTORY_SOURCE": "csv"}},
		{"zero top_n", map[string]string{"ADVISOR_RECOMMEND_TOP_N": "0"}},
		{"threshold above one", map[string]string{"ADVISOR_TOPIC_OUTLIER_THRESHOLD": "1.5"}},
		{"bad output format", map[string]string{"ADVISOR_OUTPUT_FORMAT": "xml"}},
		{"bad activation", map[string]string{"ADVISOR_MODELS_ACTIVATION": "relu"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ADVISOR_MODELS_TOPIC_EMBEDDINGS", "models.topic_embeddings"},
		{"ADVISOR_LOG_LEVEL", "log.level"},
		{"ADVISOR_METRICS", "metrics"},
		{"ADVISOR_CONFIG", ""},
	}
	for _, tt := range tests {
		if got := envKey(tt.in); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
