package ports

import "time"

// MetricsRecorder receives service-level measurements.
type MetricsRecorder interface {
	ObservePrediction(model string, label int, probability float64, latency time.Duration)
	IncPredictionError(reason string)
	IncCategoryFallback(column string)
	IncCacheLookup(hit bool)
	IncModelLoad(result string)
	SetModelInfo(name, version, checksum string)
}
