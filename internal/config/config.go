// Package config loads advisor configuration from built-in defaults, an
// optional YAML file and ADVISOR_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "ADVISOR_"

// EnvConfigFile names the YAML file when no path is passed to Load.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Config holds all advisor configuration.
type Config struct {
	Models    ModelsConfig    `koanf:"models"`
	History   HistoryConfig   `koanf:"history"`
	Text      TextConfig      `koanf:"text"`
	Recommend RecommendConfig `koanf:"recommend"`
	Topic     TopicConfig     `koanf:"topic"`
	Log       LogConfig       `koanf:"log"`
	Output    OutputConfig    `koanf:"output"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// ModelsConfig locates the model artifacts. Empty paths leave the dependent
// engine unavailable.
type ModelsConfig struct {
	EmbeddingModel  string `koanf:"embedding_model"`
	Vocab           string `koanf:"vocab"`
	Projection      string `koanf:"projection"`
	Activation      string `koanf:"activation" validate:"omitempty,oneof=identity tanh"`
	ONNXLibrary     string `koanf:"onnx_library"`
	Lowercase       bool   `koanf:"lowercase"`
	Transformer     string `koanf:"transformer"`
	Centroids       string `koanf:"centroids"`
	Topics          string `koanf:"topics"`
	TopicEmbeddings string `koanf:"topic_embeddings"`
}

// HistoryConfig selects the historical dataset. An empty source means no
// history: profiles and recommendations degrade to their warnings.
type HistoryConfig struct {
	Source string `koanf:"source" validate:"omitempty,oneof=csv sqlite badger"`
	Path   string `koanf:"path" validate:"required_with=Source"`
	Table  string `koanf:"table"`
}

// TextConfig tunes the text normalizer.
type TextConfig struct {
	ArabicStemming  bool `koanf:"arabic_stemming"`
	EnglishStemming bool `koanf:"english_stemming"`
	FrenchStemming  bool `koanf:"french_stemming"`
	DetectPrefix    int  `koanf:"detect_prefix" validate:"gt=0"`
}

type RecommendConfig struct {
	TopN int `koanf:"top_n" validate:"gt=0"`
}

type TopicConfig struct {
	OutlierThreshold float64 `koanf:"outlier_threshold" validate:"gte=0,lte=1"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// OutputConfig selects how reports are written. An empty File writes to
// stdout; MaxSize rotates the file output when positive.
type OutputConfig struct {
	Format  string `koanf:"format" validate:"oneof=json table"`
	Pretty  bool   `koanf:"pretty"`
	File    string `koanf:"file"`
	MaxSize int64  `koanf:"max_size" validate:"gte=0"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr" validate:"required_if=Enabled true"`
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"models.embedding_model":  "models/model.onnx",
		"models.vocab":            "models/vocab.txt",
		"models.projection":       "",
		"models.activation":       "identity",
		"models.transformer":      "models/column_transformer.json",
		"models.centroids":        "models/kmeans.safetensors",
		"models.topics":           "models/topics.json",
		"models.topic_embeddings": "models/topic_embeddings.safetensors",
		"history.table":           "problems",
		"text.arabic_stemming":    false,
		"text.english_stemming":   true,
		"text.french_stemming":    false,
		"text.detect_prefix":      200,
		"recommend.top_n":         3,
		"topic.outlier_threshold": 0.35,
		"log.level":               "info",
		"log.format":              "json",
		"output.format":           "json",
		"output.pretty":           false,
		"output.max_size":         0,
		"metrics.enabled":         false,
		"metrics.addr":            ":9464",
	}
}

// Load builds the configuration. path names an optional YAML file; when it
// is empty ADVISOR_CONFIG is consulted. A named file that does not exist is
// an error.
//
// Environment variables map to keys by splitting on the first underscore
// after the prefix:
//
//	ADVISOR_MODELS_TOPIC_EMBEDDINGS -> models.topic_embeddings
//	ADVISOR_RECOMMEND_TOP_N         -> recommend.top_n
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps ADVISOR_SECTION_FIELD_NAME to section.field_name. The config
// file variable itself is not a key.
func envKey(s string) string {
	if s == EnvConfigFile {
		return ""
	}
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks enum membership and numeric ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
