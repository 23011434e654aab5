package services

import "time"

// noopRecorder is used when metrics are disabled.
type noopRecorder struct{}

func (noopRecorder) ObservePrediction(string, int, float64, time.Duration) {}
func (noopRecorder) IncPredictionError(string)                           {}
func (noopRecorder) IncCategoryFallback(string)                          {}
func (noopRecorder) IncCacheLookup(bool)                                 {}
func (noopRecorder) IncModelLoad(string)                                 {}
func (noopRecorder) SetModelInfo(string, string, string)                 {}
