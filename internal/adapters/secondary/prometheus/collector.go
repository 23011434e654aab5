package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements MetricsRecorder using Prometheus
type Collector struct {
	registry *prometheus.Registry

	predictions       *prometheus.CounterVec
	predictionLatency *prometheus.HistogramVec
	probability       prometheus.Histogram
	predictionErrors  *prometheus.CounterVec
	categoryFallbacks *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	modelLoads        *prometheus.CounterVec
	modelInfo         *prometheus.GaugeVec
}

// NewCollector registers the service metrics on reg. A nil reg gets a fresh
// registry with the Go and process collectors.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promotion_predictions_total",
				Help: "Total number of predictions served",
			},
			[]string{"model", "label"},
		),
		predictionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promotion_prediction_duration_seconds",
				Help:    "Time spent scoring one record",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
			[]string{"model"},
		),
		probability: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "promotion_prediction_probability",
				Help:    "Distribution of predicted promotion probabilities",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 9),
			},
		),
		predictionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promotion_prediction_errors_total",
				Help: "Total number of failed predictions",
			},
			[]string{"reason"},
		),
		categoryFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promotion_category_fallbacks_total",
				Help: "Unknown categorical values replaced by the column fallback",
			},
			[]string{"column"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promotion_cache_lookups_total",
				Help: "Prediction cache lookups",
			},
			[]string{"result"},
		),
		modelLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promotion_model_loads_total",
				Help: "Model artifact load attempts",
			},
			[]string{"result"},
		),
		modelInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "promotion_model_info",
				Help: "Currently served model, value is always 1",
			},
			[]string{"name", "version", "checksum"},
		),
	}
}

func (c *Collector) ObservePrediction(model string, label int, probability float64, latency time.Duration) {
	c.predictions.WithLabelValues(model, strconv.Itoa(label)).Inc()
	c.predictionLatency.WithLabelValues(model).Observe(latency.Seconds())
	c.probability.Observe(probability)
}

func (c *Collector) IncPredictionError(reason string) {
	c.predictionErrors.WithLabelValues(reason).Inc()
}

func (c *Collector) IncCategoryFallback(column string) {
	c.categoryFallbacks.WithLabelValues(column).Inc()
}

func (c *Collector) IncCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

func (c *Collector) IncModelLoad(result string) {
	c.modelLoads.WithLabelValues(result).Inc()
}

// SetModelInfo replaces the info series so only the served model is reported.
func (c *Collector) SetModelInfo(name, version, checksum string) {
	c.modelInfo.Reset()
	c.modelInfo.WithLabelValues(name, version, checksum).Set(1)
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
