package advisor

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/config"
)

type options struct {
	configFile    string
	modelDir      string
	historySource string
	historyPath   string
	historyTable  string
	topN          int
	threshold     *float64
	logger        *zap.Logger
	registerer    prometheus.Registerer
	requireModels bool
}

// Option configures an Advisor.
type Option func(*options)

// WithConfigFile loads settings from a YAML file before other options apply.
// Without it, built-in defaults and ADVISOR_ environment variables are used.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithModelDir sets the directory containing the model files.
// Expects: model.onnx, vocab.txt, column_transformer.json, kmeans.safetensors,
// topics.json and topic_embeddings.safetensors. A dense projection is picked
// up from 2_Dense/model.safetensors when present.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithHistory selects the historical dataset: source is "csv", "sqlite" or
// "badger".
func WithHistory(source, path string) Option {
	return func(o *options) {
		o.historySource = source
		o.historyPath = path
	}
}

// WithHistoryTable sets the table read by the sqlite source.
func WithHistoryTable(table string) Option {
	return func(o *options) {
		o.historyTable = table
	}
}

// WithTopN caps the recommendations drawn from each field. Default: 3.
func WithTopN(n int) Option {
	return func(o *options) {
		o.topN = n
	}
}

// WithOutlierThreshold sets the minimum topic similarity below which a
// problem is assigned to the noise topic. Default: 0.35.
func WithOutlierThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = &t
	}
}

// WithLogger sets the logger. Default: no logging.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithMetrics registers the advisor's metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithRequireModels makes New and Reload fail when any model fails to load.
func WithRequireModels() Option {
	return func(o *options) {
		o.requireModels = true
	}
}

// apply overlays the options on a loaded configuration.
func (o options) apply(cfg *config.Config) {
	if o.modelDir != "" {
		m := &cfg.Models
		m.EmbeddingModel = filepath.Join(o.modelDir, "model.onnx")
		m.Vocab = filepath.Join(o.modelDir, "vocab.txt")
		m.Transformer = filepath.Join(o.modelDir, "column_transformer.json")
		m.Centroids = filepath.Join(o.modelDir, "kmeans.safetensors")
		m.Topics = filepath.Join(o.modelDir, "topics.json")
		m.TopicEmbeddings = filepath.Join(o.modelDir, "topic_embeddings.safetensors")
		m.Projection = ""
		if proj := filepath.Join(o.modelDir, "2_Dense", "model.safetensors"); fileExists(proj) {
			m.Projection = proj
		}
	}
	if o.historySource != "" {
		cfg.History.Source = o.historySource
		cfg.History.Path = o.historyPath
	}
	if o.historyTable != "" {
		cfg.History.Table = o.historyTable
	}
	if o.topN > 0 {
		cfg.Recommend.TopN = o.topN
	}
	if o.threshold != nil {
		cfg.Topic.OutlierThreshold = *o.threshold
	}
}
