package prometheus

import (
	"strconv"
	"time"
)

// FormulaMetrics holds every metric the service records.
type FormulaMetrics struct {
	// HTTP
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// gRPC
	GRPCRequestsTotal   CounterVec
	GRPCRequestDuration HistogramVec

	// Prediction
	PredictionsTotal    CounterVec
	PredictionDuration  HistogramVec
	CandidatesGenerated HistogramVec
	CandidatesAccepted  HistogramVec
	RuleRejectionsTotal CounterVec
	BatchSize           HistogramVec

	// Cache
	CacheHitsTotal   CounterVec
	CacheMissesTotal CounterVec
	CacheErrorsTotal CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets       = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultPredictionDurationBuckets = []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30}
	DefaultCandidateCountBuckets     = []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000}
	DefaultBatchSizeBuckets          = []float64{1, 5, 10, 25, 50, 100}
)

// NewFormulaMetrics registers every metric on collector.
func NewFormulaMetrics(collector MetricsCollector) *FormulaMetrics {
	m := &FormulaMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	m.GRPCRequestsTotal = collector.RegisterCounter("grpc_requests_total", "Total gRPC requests", "service", "method", "code")
	m.GRPCRequestDuration = collector.RegisterHistogram("grpc_request_duration_seconds", "gRPC request duration", DefaultHTTPDurationBuckets, "service", "method")

	m.PredictionsTotal = collector.RegisterCounter("predictions_total", "Sum formula predictions", "status")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "Sum formula prediction duration", DefaultPredictionDurationBuckets, "cached")
	m.CandidatesGenerated = collector.RegisterHistogram("candidates_generated", "Candidates produced per prediction", DefaultCandidateCountBuckets)
	m.CandidatesAccepted = collector.RegisterHistogram("candidates_accepted", "Candidates passing the rule set per prediction", DefaultCandidateCountBuckets)
	m.RuleRejectionsTotal = collector.RegisterCounter("rule_rejections_total", "Candidates rejected, by rule", "rule")
	m.BatchSize = collector.RegisterHistogram("batch_size", "Requests per batch prediction", DefaultBatchSizeBuckets)

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Cache misses", "cache")
	m.CacheErrorsTotal = collector.RegisterCounter("cache_errors_total", "Cache errors", "cache", "operation")

	return m
}

// NewNoopFormulaMetrics returns metrics that record nothing.
func NewNoopFormulaMetrics() *FormulaMetrics {
	return NewFormulaMetrics(NewNoopCollector())
}

// ----
// Helpers

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(m *FormulaMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGRPCRequest records one unary gRPC call.
func RecordGRPCRequest(m *FormulaMetrics, service, method, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GRPCRequestsTotal.WithLabelValues(service, method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordPrediction records the outcome of one prediction.
func RecordPrediction(m *FormulaMetrics, status string, cached bool, duration time.Duration, generated, accepted int) {
	if m == nil {
		return
	}
	m.PredictionsTotal.WithLabelValues(status).Inc()
	m.PredictionDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(duration.Seconds())
	if !cached {
		m.CandidatesGenerated.WithLabelValues().Observe(float64(generated))
		m.CandidatesAccepted.WithLabelValues().Observe(float64(accepted))
	}
}

// RecordRuleRejection counts one candidate rejected by rule.
func RecordRuleRejection(m *FormulaMetrics, rule string) {
	if m == nil {
		return
	}
	m.RuleRejectionsTotal.WithLabelValues(rule).Inc()
}

// ObserveBatchSize records the number of requests in one batch.
func ObserveBatchSize(m *FormulaMetrics, n int) {
	if m == nil {
		return
	}
	m.BatchSize.WithLabelValues().Observe(float64(n))
}

// RecordCacheAccess counts a hit or a miss on cache.
func RecordCacheAccess(m *FormulaMetrics, cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// RecordCacheError counts a failed cache operation.
func RecordCacheError(m *FormulaMetrics, cache, operation string) {
	if m == nil {
		return
	}
	m.CacheErrorsTotal.WithLabelValues(cache, operation).Inc()
}

//Personal.AI order the ending
