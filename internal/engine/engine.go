package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/crimson-sun/advisor/internal/config"
	"github.com/crimson-sun/advisor/internal/engine/cluster"
	"github.com/crimson-sun/advisor/internal/engine/embedder"
	"github.com/crimson-sun/advisor/internal/engine/features"
	"github.com/crimson-sun/advisor/internal/engine/textnorm"
	"github.com/crimson-sun/advisor/internal/engine/topic"
	"github.com/crimson-sun/advisor/internal/engine/transformer"
	"github.com/crimson-sun/advisor/internal/metrics"
	"github.com/crimson-sun/advisor/internal/model"
	"github.com/crimson-sun/advisor/internal/profile"
	"github.com/crimson-sun/advisor/internal/recommend"
)

// Component names used in Models.Errors.
const (
	ComponentEmbedder = "embedder"
	ComponentCluster  = "cluster"
	ComponentTopic    = "topic"
)

// Summaries used when an engine produced no label.
const (
	MsgClusterEngineUnavailable = "The cluster model is not loaded."
	MsgTopicEngineUnavailable   = "The topic model is not loaded."
	MsgClusterNotDetermined     = "No cluster could be determined for this problem."
	MsgTopicNotDetermined       = "No topic could be determined for this problem."
	MsgTopicNoText              = "The problem has no title or description text to assign a topic from."
)

// Models holds the loaded model handles shared read-only by every analysis.
// A nil engine means that component failed to load; its cause is in Errors.
type Models struct {
	Embedder embedder.Embedder
	Cluster  *cluster.Engine
	Topic    *topic.Engine
	Errors   map[string]error
}

// LoadModels loads every model artifact named in cfg once. A failing
// component is left nil and recorded in Errors; the others still load. When
// neither engine loads, the embedder is closed again.
func LoadModels(cfg config.Config, log *zap.Logger) *Models {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Models{Errors: map[string]error{}}
	fail := func(component string, err error) {
		m.Errors[component] = err
		log.Error("model load failed", zap.String("component", component), zap.Error(err))
	}

	if cfg.Models.EmbeddingModel == "" || cfg.Models.Vocab == "" {
		err := errors.New("embedding model or vocabulary not configured")
		fail(ComponentEmbedder, err)
		fail(ComponentCluster, err)
		fail(ComponentTopic, err)
		return m
	}
	emb, err := embedder.New(embedder.Config{
		ModelPath:      cfg.Models.EmbeddingModel,
		VocabPath:      cfg.Models.Vocab,
		ProjectionPath: cfg.Models.Projection,
		Activation:     cfg.Models.Activation,
		LibraryPath:    cfg.Models.ONNXLibrary,
		Lowercase:      cfg.Models.Lowercase,
	})
	if err != nil {
		fail(ComponentEmbedder, err)
		fail(ComponentCluster, fmt.Errorf("%w: %v", cluster.ErrUnavailable, err))
		fail(ComponentTopic, fmt.Errorf("%w: %v", topic.ErrUnavailable, err))
		return m
	}
	log.Info("embedder loaded", zap.Int("dim", emb.EmbedDim()))

	if c, err := loadCluster(cfg.Models, emb, log); err != nil {
		fail(ComponentCluster, err)
	} else {
		m.Cluster = c
		log.Info("cluster model loaded", zap.Int("clusters", c.Clusters()), zap.Int("width", c.Width()))
	}
	if t, err := loadTopic(cfg.Models, cfg.Topic.OutlierThreshold, emb, log); err != nil {
		fail(ComponentTopic, err)
	} else {
		m.Topic = t
		log.Info("topic model loaded", zap.Int("topics", len(t.Topics())), zap.Float64("threshold", t.Threshold()))
	}

	keepEmbedder(m, emb, log)
	return m
}

// keepEmbedder hands emb to m when an engine uses it and closes it otherwise.
func keepEmbedder(m *Models, emb embedder.Embedder, log *zap.Logger) {
	if m.Cluster != nil || m.Topic != nil {
		m.Embedder = emb
		return
	}
	if err := emb.Close(); err != nil {
		log.Warn("embedder close failed", zap.Error(err))
	}
}

func loadCluster(cfg config.ModelsConfig, emb embedder.Embedder, log *zap.Logger) (*cluster.Engine, error) {
	if cfg.Transformer == "" || cfg.Centroids == "" {
		return nil, fmt.Errorf("%w: transformer or centroids not configured", cluster.ErrUnavailable)
	}
	tr, err := transformer.Load(cfg.Transformer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cluster.ErrUnavailable, err)
	}
	centroids, err := cluster.LoadCentroids(cfg.Centroids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cluster.ErrUnavailable, err)
	}
	if len(centroids) == 0 {
		return nil, fmt.Errorf("%w: %s has no centroids", cluster.ErrUnavailable, cfg.Centroids)
	}
	if want := tr.Width() + emb.EmbedDim(); len(centroids[0]) != want {
		return nil, fmt.Errorf("%w: centroids have width %d, transformer and embedder produce %d",
			cluster.ErrDimensionMismatch, len(centroids[0]), want)
	}
	return cluster.New(tr, emb, centroids, log.Named("cluster"))
}

func loadTopic(cfg config.ModelsConfig, threshold float64, emb embedder.Embedder, log *zap.Logger) (*topic.Engine, error) {
	if cfg.Topics == "" || cfg.TopicEmbeddings == "" {
		return nil, fmt.Errorf("%w: topic table or embeddings not configured", topic.ErrUnavailable)
	}
	table, err := topic.LoadTable(cfg.Topics)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", topic.ErrUnavailable, err)
	}
	refs, err := topic.LoadEmbeddings(cfg.TopicEmbeddings)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", topic.ErrUnavailable, err)
	}
	return topic.New(table, refs, emb, threshold, log.Named("topic"))
}

// Err joins the load errors of every component.
func (m *Models) Err() error {
	if m == nil {
		return nil
	}
	return errors.Join(lo.Values(m.Errors)...)
}

// Close releases the embedder session.
func (m *Models) Close() error {
	if m == nil || m.Embedder == nil {
		return nil
	}
	return m.Embedder.Close()
}

// Analyzer runs one problem record through normalization, cluster and topic
// inference, profiling and recommendation. It holds no per-call state and is
// safe for concurrent use.
type Analyzer struct {
	cluster    *cluster.Engine
	topic      *topic.Engine
	norm       *textnorm.Normalizer
	assembler  *features.Assembler
	summarizer *profile.Summarizer
	selector   *recommend.Selector
	history    *model.Dataset
	topN       int
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// Options configures an Analyzer. Zero values select defaults.
type Options struct {
	History *model.Dataset
	TopN    int
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// New creates an Analyzer over loaded models. models may be nil, in which
// case every analysis reports both engines unavailable.
func New(models *Models, norm *textnorm.Normalizer, opts Options) *Analyzer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if norm == nil {
		topts := textnorm.DefaultOptions()
		topts.Logger = log
		norm = textnorm.New(topts)
	}
	a := &Analyzer{
		norm:      norm,
		assembler: features.NewAssembler(norm),
		selector:  recommend.New(log.Named("recommend")),
		history:   opts.History,
		topN:      opts.TopN,
		metrics:   opts.Metrics,
		log:       log,
	}
	if models != nil {
		a.cluster = models.Cluster
		a.topic = models.Topic
	}
	a.summarizer = profile.New(a.topic, norm)
	return a
}

// Analyze never returns an error: failures are reported through the
// result's Error and Degraded codes and its summaries.
func (a *Analyzer) Analyze(rec model.ProblemRecord) model.AnalysisResult {
	start := time.Now()
	res := model.AnalysisResult{
		RequestID:      uuid.NewString(),
		Input:          rec.Clone(),
		ClusterSummary: MsgClusterNotDetermined,
		TopicSummary:   MsgTopicNotDetermined,
	}
	log := a.log.With(zap.String("request_id", res.RequestID))

	if rec.IsEmpty() {
		res.Error = model.ErrInvalidInput
		a.metrics.ObserveAnalysis(string(model.ErrInvalidInput), time.Since(start))
		log.Warn("analysis rejected: empty record")
		return res
	}

	a.assignCluster(rec, &res, log)
	a.assignTopic(rec, &res, log)

	outcome := "ok"
	if len(res.Degraded) > 0 {
		outcome = "degraded"
	}
	a.metrics.ObserveAnalysis(outcome, time.Since(start))
	log.Debug("analysis finished",
		zap.Any("cluster", res.Cluster), zap.Any("topic", res.Topic),
		zap.Any("degraded", res.Degraded), zap.Duration("elapsed", time.Since(start)))
	return res
}

func (a *Analyzer) assignCluster(rec model.ProblemRecord, res *model.AnalysisResult, log *zap.Logger) {
	if !a.cluster.Available() {
		res.Degraded = append(res.Degraded, model.ErrClusterUnavailable)
		res.ClusterSummary = MsgClusterEngineUnavailable
		a.metrics.ClusterPrediction(metrics.ResultUnavailable)
		return
	}
	row := a.assembler.Assemble(rec, a.cluster.Schema())
	labels, err := a.cluster.Predict([]features.Row{row})
	if err != nil || len(labels) != 1 {
		code, result := clusterFailure(err)
		res.Degraded = append(res.Degraded, code)
		a.metrics.ClusterPrediction(result)
		log.Warn("cluster prediction failed", zap.Error(err))
		return
	}
	res.Cluster = lo.ToPtr(labels[0])
	res.ClusterSummary = a.summarizer.Cluster(a.history, labels[0])
	a.metrics.ClusterPrediction(metrics.ResultOK)
}

func clusterFailure(err error) (model.ErrorCode, string) {
	switch {
	case errors.Is(err, cluster.ErrSchema):
		return model.ErrClusterSchema, metrics.ResultSchema
	case errors.Is(err, cluster.ErrDimensionMismatch):
		return model.ErrClusterDimensionMismatch, metrics.ResultDimension
	case errors.Is(err, cluster.ErrUnavailable):
		return model.ErrClusterUnavailable, metrics.ResultUnavailable
	default:
		return model.ErrClusterFailed, metrics.ResultError
	}
}

func (a *Analyzer) assignTopic(rec model.ProblemRecord, res *model.AnalysisResult, log *zap.Logger) {
	if !a.topic.Available() {
		res.Degraded = append(res.Degraded, model.ErrTopicUnavailable)
		res.TopicSummary = MsgTopicEngineUnavailable
		a.metrics.TopicAssignment(metrics.ResultUnavailable)
		return
	}
	text := a.norm.Normalize(TopicText(&rec))
	if text == "" {
		res.TopicSummary = MsgTopicNoText
		a.metrics.TopicAssignment(metrics.ResultSkipped)
		return
	}
	ids, probs, err := a.topic.Assign([]string{text})
	if err != nil || len(ids) != 1 {
		res.Degraded = append(res.Degraded, model.ErrTopicFailed)
		a.metrics.TopicAssignment(metrics.ResultError)
		log.Warn("topic assignment failed", zap.Error(err))
		return
	}
	res.Topic = lo.ToPtr(ids[0])
	res.TopicProbability = lo.ToPtr(probs[0])
	res.TopicSummary = a.summarizer.Topic(a.history, ids[0])
	if topic.IsNoise(ids[0]) {
		a.metrics.TopicAssignment(metrics.ResultNoise)
	} else {
		a.metrics.TopicAssignment(metrics.ResultOK)
	}
}

// TopicText joins the title, description and refined statement of rec.
func TopicText(rec *model.ProblemRecord) string {
	parts := lo.FilterMap(model.TopicFields, func(name string, _ int) (string, bool) {
		v, ok := rec.Lookup(name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	})
	return strings.Join(parts, " ")
}

// Recommend selects recommendations for an analyzed record.
func (a *Analyzer) Recommend(res model.AnalysisResult) model.RecommendationBundle {
	b := a.selector.Recommend(res.Cluster, res.Topic, a.history, res.Input.ProblemID, a.topN)
	for _, w := range b.Warnings {
		a.metrics.RecommendationWarning(string(w.Code))
	}
	return b
}

// Advise analyzes rec and attaches its recommendations.
func (a *Analyzer) Advise(rec model.ProblemRecord) model.Report {
	res := a.Analyze(rec)
	if res.Error != "" {
		return model.Report{Analysis: res}
	}
	return model.Report{Analysis: res, Recommendations: a.Recommend(res)}
}

// History returns the dataset profiles and recommendations are drawn from.
func (a *Analyzer) History() *model.Dataset { return a.history }

// NewNormalizer builds the text normalizer described by cfg.
func NewNormalizer(cfg config.TextConfig, log *zap.Logger) *textnorm.Normalizer {
	return textnorm.New(textnorm.Options{
		ArabicStemming:  cfg.ArabicStemming,
		EnglishStemming: cfg.EnglishStemming,
		FrenchStemming:  cfg.FrenchStemming,
		DetectPrefix:    cfg.DetectPrefix,
		Logger:          log,
	})
}
