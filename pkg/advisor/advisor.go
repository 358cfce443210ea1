package advisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/config"
	"github.com/crimson-sun/advisor/internal/engine"
	"github.com/crimson-sun/advisor/internal/engine/topic"
	"github.com/crimson-sun/advisor/internal/history"
	"github.com/crimson-sun/advisor/internal/metrics"
	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/output"
)

// ErrInvalidProblem is returned by Analyze when a problem carries no text.
var ErrInvalidProblem = errors.New("advisor: invalid problem")

// Advisor analyzes problems and recommends from similar history.
// Safe for concurrent use.
type Advisor struct {
	opts     options
	log      *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	mu    sync.RWMutex
	state *state
}

// state is everything Reload replaces at once.
type state struct {
	cfg      *config.Config
	models   *engine.Models
	analyzer *engine.Analyzer
}

// New creates an Advisor, loading configuration, models and history. Model
// load failures degrade the analysis unless WithRequireModels is set;
// configuration and history errors always fail.
func New(opts ...Option) (*Advisor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = zap.NewNop()
	}
	a := &Advisor{
		opts:     o,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if o.registerer != nil {
		a.metrics = metrics.New(o.registerer)
	}

	st, err := a.load(context.Background())
	if err != nil {
		return nil, err
	}
	a.state = st
	return a, nil
}

func (a *Advisor) load(ctx context.Context) (*state, error) {
	cfg, err := config.Load(a.opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}
	a.opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}

	ds, err := history.FromConfig(ctx, cfg.History)
	if err != nil {
		return nil, fmt.Errorf("advisor: %w", err)
	}

	models := engine.LoadModels(*cfg, a.log.Named("models"))
	if a.opts.requireModels {
		if err := models.Err(); err != nil {
			models.Close()
			return nil, fmt.Errorf("advisor: %w", err)
		}
	}

	norm := engine.NewNormalizer(cfg.Text, a.log.Named("textnorm"))
	an := engine.New(models, norm, engine.Options{
		History: ds,
		TopN:    cfg.Recommend.TopN,
		Metrics: a.metrics,
		Logger:  a.log.Named("engine"),
	})
	return &state{cfg: cfg, models: models, analyzer: an}, nil
}

// Reload re-reads configuration, models and history and swaps them in.
// In-flight analyses finish on the old models. On error the current state
// is kept.
func (a *Advisor) Reload(ctx context.Context) error {
	st, err := a.load(ctx)
	if err != nil {
		return err
	}
	a.mu.Lock()
	old := a.state
	a.state = st
	a.mu.Unlock()

	a.log.Info("advisor reloaded", zap.Int("history", st.analyzer.History().Len()))
	return old.models.Close()
}

// Analyze validates p and returns its analysis and recommendations. Engine
// failures do not produce an error; they show up in Result.Degraded.
func (a *Advisor) Analyze(p Problem) (Result, error) {
	if err := a.validate.Struct(p); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidProblem, err)
	}
	a.mu.RLock()
	report := a.state.analyzer.Advise(p.record())
	a.mu.RUnlock()

	if report.Analysis.Error != "" {
		return Result{}, fmt.Errorf("%w: %s", ErrInvalidProblem, output.ErrorText(report.Analysis.Error))
	}
	return resultFromReport(report), nil
}

// ModelErrors reports which models failed to load, or nil when all did.
func (a *Advisor) ModelErrors() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.models.Err()
}

// Topics lists the topics of the loaded topic model, noise topic included.
// It is empty when no topic model is loaded.
func (a *Advisor) Topics() []Topic {
	a.mu.RLock()
	tp := a.state.models.Topic
	a.mu.RUnlock()

	return lo.Map(tp.Topics(), func(t topic.Info, _ int) Topic {
		return Topic{
			ID:    t.ID,
			Name:  tp.RepresentativeName(t.ID),
			Count: t.Count,
			Keywords: lo.Map(tp.Keywords(t.ID), func(k topic.Keyword, _ int) string {
				return k.Term
			}),
		}
	})
}

// Close releases model resources (ONNX runtime, memory).
func (a *Advisor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.models.Close()
}

func resultFromReport(r model.Report) Result {
	an := r.Analysis
	res := Result{
		RequestID:        an.RequestID,
		Cluster:          an.Cluster,
		Topic:            an.Topic,
		TopicProbability: an.TopicProbability,
		ClusterSummary:   an.ClusterSummary,
		TopicSummary:     an.TopicSummary,
	}
	res.ClusterSuggestions = lo.Map(r.Recommendations.Cluster, func(rec model.Recommendation, _ int) string {
		return rec.String()
	})
	res.TopicSuggestions = lo.Map(r.Recommendations.Topic, func(rec model.Recommendation, _ int) string {
		return rec.String()
	})
	res.Warnings = lo.Map(r.Recommendations.Warnings, func(w model.Warning, _ int) string {
		return output.WarningText(w)
	})
	res.Degraded = lo.Map(an.Degraded, func(c model.ErrorCode, _ int) string {
		return output.ErrorText(c)
	})
	return res
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
